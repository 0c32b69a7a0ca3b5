package membership

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the signed content of a session token: a member
// identity plus the issue/expiry window. Roles are deliberately NOT
// embedded; they are re-resolved from storage on every request so a
// stale token can never carry old privileges.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid,omitempty"`
}

// MemberID returns the bound member identity.
func (c *SessionClaims) MemberID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedTime returns the issued-at time
func (c *SessionClaims) IssuedTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
