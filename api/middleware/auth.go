package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/propnest/propnest-client/api/responses"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
	"github.com/propnest/propnest-client/pkg/logger"
)

// Auth guards control routes with the shared status token. An empty token
// leaves the routes open, which is only sensible on a loopback listener.
func Auth(token string, logg *logger.Logger) func(http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(token))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			provided := raw
			if strings.HasPrefix(strings.ToLower(provided), "bearer ") {
				provided = strings.TrimSpace(provided[7:])
			}
			if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
