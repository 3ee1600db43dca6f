package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/memberwell/memberwell-backend/internal/models"
)

// ResetTokenStore is the Postgres-backed password reset token repository.
type ResetTokenStore struct {
	db *sql.DB
}

func NewResetTokenStore(db *sql.DB) *ResetTokenStore {
	return &ResetTokenStore{db: db}
}

// Create inserts a new unused token.
func (s *ResetTokenStore) Create(ctx context.Context, t *models.PasswordResetToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (id, created_at, member_number, token, expires_at, used)
		VALUES ($1, $2, $3, $4, $5, FALSE)
	`, t.ID, t.CreatedAt, t.MemberNumber, t.Token, t.ExpiresAt)
	return err
}

// GetByToken returns (nil, nil) when no row carries the token.
func (s *ResetTokenStore) GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, member_number, token, expires_at, used
		FROM password_reset_tokens WHERE token = $1
	`, token).Scan(&t.ID, &t.CreatedAt, &t.MemberNumber, &t.Token, &t.ExpiresAt, &t.Used)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkUsed consumes the token. A used token is never reset.
func (s *ResetTokenStore) MarkUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE password_reset_tokens SET used = TRUE WHERE id = $1
	`, id)
	return err
}
