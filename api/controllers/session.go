package controllers

import (
	"context"
	"net/http"

	"github.com/propnest/propnest-client/api/responses"
	"github.com/propnest/propnest-client/api/validators"
	"github.com/propnest/propnest-client/pkg/logger"
)

// SessionService logs the runtime in and out.
type SessionService interface {
	StatusSource
	Login(ctx context.Context, token string) error
	Logout(ctx context.Context) error
}

type loginRequest struct {
	Token string `json:"token" validate:"required"`
}

// SessionLogin binds the runtime to the posted bearer token and returns the
// resulting status. A failed first fetch is reported, but the session stays.
func SessionLogin(svc SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Login(r.Context(), req.Token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.Status())
	}
}

// SessionLogout clears the session and all user state.
func SessionLogout(svc SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.Status())
	}
}

// SessionStatus returns the runtime status.
func SessionStatus(src StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, src.Status())
	}
}
