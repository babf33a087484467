package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims are the claims carried by access tokens minted by the
// hosted identity provider. The subject is the user id.
type AccessTokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the trimmed subject claim.
func (c *AccessTokenClaims) UserID() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Subject)
}

// HasRole reports whether the token carries role, case-insensitively.
func (c *AccessTokenClaims) HasRole(role string) bool {
	if c == nil || role == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(c.Role), role)
}
