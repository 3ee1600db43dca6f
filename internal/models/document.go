package models

import (
	"time"

	"github.com/google/uuid"
)

// MemberDocument is metadata for a file stored in object storage under the
// member's folder.
type MemberDocument struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	MemberNumber string `json:"member_number"`
	FileName     string `json:"file_name"`
	URL          string `json:"url"`
	SizeBytes    int64  `json:"size_bytes"`
}
