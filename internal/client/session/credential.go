package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialExpiry reads the exp claim of a JWT credential without checking
// its signature. It is for display only: validity is decided by the backend.
// ok is false for opaque or malformed tokens and tokens without exp.
func CredentialExpiry(token string) (exp time.Time, ok bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
