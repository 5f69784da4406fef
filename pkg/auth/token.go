package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ParseAccessTokenUnverified decodes the claims without checking the signature.
// The client never holds the signing key; the backend remains the verifier.
func ParseAccessTokenUnverified(tokenString string) (*AccessTokenClaims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tokenString), "Bearer "))
	if tokenString == "" {
		return nil, fmt.Errorf("token is required")
	}
	claims := &AccessTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// LooksLikeJWT reports whether token has the three dot-separated segments of a JWT.
// Opaque personal access tokens (e.g. "12|abc...") do not.
func LooksLikeJWT(token string) bool {
	return strings.Count(strings.TrimSpace(token), ".") == 2
}
