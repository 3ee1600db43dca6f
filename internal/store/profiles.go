package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/memberwell/memberwell-backend/internal/models"
)

// ProfileStore is the Postgres-backed profile repository, keyed by auth
// account id.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Get returns (nil, nil) when no profile exists for the account.
func (s *ProfileStore) Get(ctx context.Context, authUserID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	var fullName, phone sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at, email, full_name, phone, profile_completed
		FROM profiles WHERE id = $1
	`, authUserID).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.Email, &fullName, &phone, &p.ProfileCompleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.FullName = fullName.String
	p.Phone = phone.String
	return &p, nil
}

// Create inserts a profile row. ON CONFLICT DO NOTHING keeps a concurrent
// double-login from erroring: the lookup-before-create in the linker already
// guards the common path.
func (s *ProfileStore) Create(ctx context.Context, p *models.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, created_at, updated_at, email, full_name, phone, profile_completed)
		VALUES ($1, NOW(), NOW(), $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, p.ID, p.Email, p.FullName, p.Phone, p.ProfileCompleted)
	return err
}

// Update writes the editable profile fields and the completion flag.
func (s *ProfileStore) Update(ctx context.Context, p *models.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET full_name = $2, phone = $3, profile_completed = $4, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.FullName, p.Phone, p.ProfileCompleted)
	return err
}
