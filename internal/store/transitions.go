package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/memberwell/memberwell-backend/internal/models"
)

// TransitionStore is the Postgres-backed email transition repository.
type TransitionStore struct {
	db *sql.DB
}

func NewTransitionStore(db *sql.DB) *TransitionStore {
	return &TransitionStore{db: db}
}

const transitionColumns = `id, created_at, member_number, old_email, new_email, token,
	expires_at, status, completed_at, error_message`

func scanTransition(row *sql.Row) (*models.EmailTransition, error) {
	var t models.EmailTransition
	var completedAt sql.NullTime
	var errorMessage sql.NullString

	err := row.Scan(&t.ID, &t.CreatedAt, &t.MemberNumber, &t.OldEmail, &t.NewEmail,
		&t.Token, &t.ExpiresAt, &t.Status, &completedAt, &errorMessage)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		ts := completedAt.Time
		t.CompletedAt = &ts
	}
	t.ErrorMessage = errorMessage.String
	return &t, nil
}

// Latest returns the member's most recently created transition, or
// (nil, nil) when there is none.
func (s *TransitionStore) Latest(ctx context.Context, memberNumber string) (*models.EmailTransition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transitionColumns+` FROM email_transitions
		WHERE member_number = $1 ORDER BY created_at DESC LIMIT 1
	`, memberNumber)

	t, err := scanTransition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// Create inserts a new pending transition.
func (s *TransitionStore) Create(ctx context.Context, t *models.EmailTransition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_transitions (id, created_at, member_number, old_email, new_email,
			token, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.CreatedAt, t.MemberNumber, t.OldEmail, t.NewEmail, t.Token, t.ExpiresAt, t.Status)
	return err
}

// GetByToken returns (nil, nil) when no transition carries the token.
func (s *TransitionStore) GetByToken(ctx context.Context, token string) (*models.EmailTransition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transitionColumns+` FROM email_transitions WHERE token = $1
	`, token)

	t, err := scanTransition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// MarkCompleted moves a transition to its terminal success state.
func (s *TransitionStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE email_transitions SET status = $2, completed_at = NOW() WHERE id = $1
	`, id, models.TransitionCompleted)
	return err
}

// MarkFailed moves a transition to its terminal error state.
func (s *TransitionStore) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE email_transitions SET status = $2, error_message = $3 WHERE id = $1
	`, id, models.TransitionFailed, errorMessage)
	return err
}
