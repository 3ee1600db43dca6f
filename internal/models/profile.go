package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the per-auth-account record that gates access to member screens
// until completed. Keyed 1:1 by the auth account id; created lazily on first
// login if absent.
type Profile struct {
	ID        uuid.UUID `json:"id"` // auth account id
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email            string `json:"email"`
	FullName         string `json:"full_name,omitempty"`
	Phone            string `json:"phone,omitempty"`
	ProfileCompleted bool   `json:"profile_completed"`
}
