// Package session derives the local user's identity from the access token
// issued by the external auth service.
package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is who the client is acting as.
type Identity struct {
	UserID string
	Email  string
}

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// ParseIdentity extracts the user id and email from a JWT access token. The
// signature is not verified here: the token came from the auth service and
// every remote call presents it for server-side verification; the client only
// needs the embedded identity for echo filtering and checker attribution.
func ParseIdentity(token string) (Identity, error) {
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return Identity{}, fmt.Errorf("parse token: %w", err)
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("token has no subject")
	}
	return Identity{UserID: c.Subject, Email: c.Email}, nil
}
