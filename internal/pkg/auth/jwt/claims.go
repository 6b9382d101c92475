package jwt

import "github.com/golang-jwt/jwt"

// Payload is the claim set stored in the session cookie.
type Payload struct {
	jwt.StandardClaims

	// ID is the user id the session was issued to.
	ID string `json:"uid"`

	// Email is informational; authorization always re-reads the user record.
	Email string `json:"email,omitempty"`
}
