package models

import (
	"time"

	"github.com/google/uuid"
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = 1 * time.Hour

// PasswordResetToken is a single-use token issued by the reset-request flow.
// Consumed (marked used) exactly once; used or expired tokens are always
// rejected, even if the password was already changed with them.
type PasswordResetToken struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	MemberNumber string    `json:"member_number"`
	Token        string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	Used         bool      `json:"used"`
}

// Valid reports whether the token can still be consumed at time now.
func (t *PasswordResetToken) Valid(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
