// Package auth resolves bearer credentials into request principals.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// identityClaim is the token claim carrying the principal identifier.
const identityClaim = "userId"

// Verification errors. ErrNoToken maps to 401; the others map to 403 because
// the caller presented a credential that could not be accepted.
var (
	ErrNoToken      = errors.New("no bearer token provided")
	ErrTokenInvalid = errors.New("invalid or expired token")
	ErrClaimMissing = errors.New("token payload missing identity claim")
)

// Verifier validates HMAC-signed bearer tokens issued by the auth provider.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a bearer token and returns the principal
// identifier from its identity claim.
func (v *Verifier) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrNoToken
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrClaimMissing
	}

	userID, _ := claims[identityClaim].(string)
	if userID == "" {
		return "", ErrClaimMissing
	}

	return userID, nil
}
