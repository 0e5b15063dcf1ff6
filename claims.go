package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims is the payload of issued tokens. It is signed, not encrypted:
// nothing secret goes in here.
type JWTClaims struct {
	jwt.RegisteredClaims
	Name      string   `json:"name,omitempty"`
	UserRoles []string `json:"roles"`
}

// UserID returns the subject
func (c *JWTClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// Roles returns the valid roles carried by the token
func (c *JWTClaims) Roles() []Role {
	return ParseRoles(c.UserRoles)
}

// HasRole checks if the token carries role
func (c *JWTClaims) HasRole(role Role) bool {
	for _, r := range c.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
