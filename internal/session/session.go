package session

import (
	"strings"
	"sync"
	"time"

	"github.com/propnest/propnest-client/pkg/auth"
	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
)

// Session is the authenticated identity the client acts as.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt *time.Time
}

// Expired reports whether the token's exp claim is in the past.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// FromToken derives a session from a JWT bearer token. The signature is not
// checked here; the backend rejects forged tokens on the first call.
func FromToken(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "token is required")
	}
	claims, err := auth.ParseAccessTokenUnverified(token)
	if err != nil {
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "unreadable access token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "access token has no user")
	}
	s := Session{Token: token, UserID: userID}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		s.ExpiresAt = &exp
	}
	return s, nil
}

// Resolve builds a session from token. Opaque tokens carry no claims, so the
// caller supplies the user id; for JWTs a non-zero userID must match sub.
func Resolve(token string, userID int64) (Session, error) {
	token = strings.TrimSpace(token)
	if !auth.LooksLikeJWT(token) {
		if token == "" {
			return Session{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "token is required")
		}
		if userID <= 0 {
			return Session{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required for opaque tokens")
		}
		return Session{Token: token, UserID: userID}, nil
	}
	s, err := FromToken(token)
	if err != nil {
		return Session{}, err
	}
	if userID > 0 && userID != s.UserID {
		return Session{}, pkgerrors.New(pkgerrors.CodeForbidden, "configured user does not match token subject")
	}
	return s, nil
}

// Holder keeps the current session. The zero value is logged out.
type Holder struct {
	mu      sync.RWMutex
	current *Session
}

// Set replaces the current session.
func (h *Holder) Set(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = &s
}

// Clear logs out.
func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = nil
}

// Current returns the session and whether one is set.
func (h *Holder) Current() (Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return Session{}, false
	}
	return *h.current, true
}

// Authenticated reports whether a session is set.
func (h *Holder) Authenticated() bool {
	_, ok := h.Current()
	return ok
}

// Token returns the bearer token, or "" when logged out.
func (h *Holder) Token() string {
	s, _ := h.Current()
	return s.Token
}

// UserID returns the current user id, or nil when logged out.
func (h *Holder) UserID() *int64 {
	s, ok := h.Current()
	if !ok {
		return nil
	}
	id := s.UserID
	return &id
}
