package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestParseAccessTokenUnverified(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signed(t, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	claims, err := ParseAccessTokenUnverified("Bearer " + token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	id, err := claims.UserID()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected user id 42, got %d", id)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.Equal(exp) {
		t.Fatalf("expiry not preserved: %v", claims.ExpiresAt)
	}
}

func TestUserIDFallsBackToLegacyClaim(t *testing.T) {
	token := signed(t, jwt.MapClaims{"user_id": 7})
	claims, err := ParseAccessTokenUnverified(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 7 {
		t.Fatalf("expected legacy user id 7, got %d (%v)", id, err)
	}
}

func TestUserIDMissing(t *testing.T) {
	token := signed(t, jwt.MapClaims{"sub": "not-a-number"})
	claims, err := ParseAccessTokenUnverified(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if _, err := claims.UserID(); err == nil {
		t.Fatal("expected error for non-numeric subject")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := ParseAccessTokenUnverified(""); err == nil {
		t.Fatal("expected error for empty token")
	}
	if _, err := ParseAccessTokenUnverified("12|opaque-sanctum-token"); err == nil {
		t.Fatal("expected error for opaque token")
	}
}

func TestLooksLikeJWT(t *testing.T) {
	if !LooksLikeJWT("a.b.c") {
		t.Fatal("expected jwt shape")
	}
	if LooksLikeJWT("12|opaque") {
		t.Fatal("opaque token is not a jwt")
	}
}
