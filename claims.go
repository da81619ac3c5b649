package scribe

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialClaims is the payload carried by a scribe bearer token.
type CredentialClaims struct {
	jwt.RegisteredClaims
	UserID       string `json:"user_id,omitempty"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	FullName     string `json:"full_name,omitempty"`
	ProfilePhoto string `json:"profile_photo,omitempty"`
}

// Identity returns the user identifier, falling back to the subject
func (c *CredentialClaims) Identity() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *CredentialClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued at time
func (c *CredentialClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// registeredClaimKeys are the claims mapped onto CredentialClaims fields.
var registeredClaimKeys = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "nbf": {}, "iat": {}, "jti": {},
	"user_id": {}, "username": {}, "email": {}, "full_name": {}, "profile_photo": {},
}
