package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/memberwell/memberwell-backend/internal/models"
)

// AuditStore appends audit entries. A failed audit write is logged and
// swallowed so bookkeeping can never fail a flow. The table is append-only;
// no update or delete exists.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Record(ctx context.Context, e *models.AuditEntry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Severity == "" {
		e.Severity = models.SeverityInfo
	}

	var metadata []byte
	if e.Metadata != nil {
		metadata, _ = json.Marshal(e.Metadata)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, created_at, operation, table_name, record_id,
			old_values, new_values, severity, actor_id, correlation_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, e.ID, e.CreatedAt, e.Operation, nullIfEmpty(e.TableName), nullIfEmpty(e.RecordID),
		rawOrNil(e.OldValues), rawOrNil(e.NewValues), e.Severity, e.ActorID, e.CorrelationID, metadata)
	if err != nil {
		log.Printf("audit: recording %s: %v", e.Operation, err)
	}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func rawOrNil(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
