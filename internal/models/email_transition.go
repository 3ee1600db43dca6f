package models

import (
	"time"

	"github.com/google/uuid"
)

// Email transition statuses
const (
	TransitionPending   = "pending"
	TransitionVerifying = "verifying" // legacy rows only, treated as pending
	TransitionCompleted = "completed"
	TransitionFailed    = "failed"
)

// TransitionTokenTTL is how long a verification link stays valid. Expiry is
// checked at verification time, not at issuance.
const TransitionTokenTTL = 24 * time.Hour

// EmailTransition is an in-flight change of a member's login email from the
// placeholder address to a real personal one.
type EmailTransition struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	MemberNumber string `json:"member_number"`
	OldEmail     string `json:"old_email"`
	NewEmail     string `json:"new_email"`

	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`

	Status       string     `json:"status"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// Active reports whether the transition still blocks a new email-change
// request. Completed and failed are terminal; failed re-opens the ability.
func (t *EmailTransition) Active() bool {
	return t.Status == TransitionPending || t.Status == TransitionVerifying
}
