package store

import (
	"context"
	"database/sql"

	"github.com/memberwell/memberwell-backend/internal/models"
)

// DocumentStore holds object-storage metadata for member documents.
type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Create(ctx context.Context, d *models.MemberDocument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO member_documents (id, created_at, member_number, file_name, url, size_bytes)
		VALUES ($1, NOW(), $2, $3, $4, $5)
	`, d.ID, d.MemberNumber, d.FileName, d.URL, d.SizeBytes)
	return err
}

func (s *DocumentStore) ListByMember(ctx context.Context, memberNumber string) ([]*models.MemberDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, member_number, file_name, url, size_bytes
		FROM member_documents WHERE member_number = $1 ORDER BY created_at DESC
	`, memberNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.MemberDocument
	for rows.Next() {
		var d models.MemberDocument
		if err := rows.Scan(&d.ID, &d.CreatedAt, &d.MemberNumber, &d.FileName, &d.URL, &d.SizeBytes); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
