package models

import (
	"time"

	"github.com/google/uuid"
)

// Member statuses
const (
	MemberStatusActive    = "active"
	MemberStatusInactive  = "inactive"
	MemberStatusPending   = "pending"
	MemberStatusSuspended = "suspended"
	MemberStatusDeceased  = "deceased"
)

// MaxFailedLogins is the consecutive-failure threshold after which a member
// is suspended until an admin intervenes.
const MaxFailedLogins = 10

type Member struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	MemberNumber string `json:"member_number"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Status       string `json:"status"`

	// AuthUserID links the member to the auth account. Nil until the member
	// logs in for the first time.
	AuthUserID *uuid.UUID `json:"auth_user_id,omitempty"`

	CompletionFlags

	EmailVerified    bool   `json:"email_verified"`
	FailedLoginCount int    `json:"failed_login_count"`
	Collector        string `json:"collector,omitempty"`
}

// CompletionFlags is the four-boolean completion quadruple as stored.
// Application logic should not branch on these directly; derive a MemberState
// at the storage boundary instead.
type CompletionFlags struct {
	FirstTimeLogin        bool `json:"first_time_login"`
	PasswordChanged       bool `json:"password_changed"`
	ProfileCompleted      bool `json:"profile_completed"`
	RegistrationCompleted bool `json:"registration_completed"`
}
