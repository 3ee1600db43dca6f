package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// AuditEntry is an append-only record of a sensitive operation. Entries are
// never updated or deleted by the application.
type AuditEntry struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Operation string `json:"operation"`
	TableName string `json:"table_name,omitempty"`
	RecordID  string `json:"record_id,omitempty"`

	OldValues json.RawMessage `json:"old_values,omitempty"`
	NewValues json.RawMessage `json:"new_values,omitempty"`

	Severity string     `json:"severity"`
	ActorID  *uuid.UUID `json:"actor_id,omitempty"`

	// CorrelationID joins every audit row written by one multi-step flow
	// (login-with-bootstrap, email transition, password reset).
	CorrelationID uuid.UUID         `json:"correlation_id"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}
