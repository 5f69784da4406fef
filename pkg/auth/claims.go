package auth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims is the subset of the backend's access token the client reads.
type AccessTokenClaims struct {
	// LegacyUserID is set by older backends that put the id in user_id instead of sub.
	LegacyUserID any `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID resolves the numeric user id from sub, falling back to user_id.
func (c *AccessTokenClaims) UserID() (int64, error) {
	if sub := strings.TrimSpace(c.Subject); sub != "" {
		return parseID(sub)
	}
	switch v := c.LegacyUserID.(type) {
	case float64:
		return int64(v), nil
	case string:
		return parseID(v)
	}
	return 0, fmt.Errorf("token carries no user id")
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}
