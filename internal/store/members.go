package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/memberwell/memberwell-backend/internal/auth"
	"github.com/memberwell/memberwell-backend/internal/models"
)

// MemberStore is the Postgres-backed member repository.
type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberColumns = `id, created_at, updated_at, member_number, full_name, email, phone, status,
	auth_user_id, first_time_login, password_changed, email_verified,
	profile_completed, registration_completed, failed_login_count, collector`

func scanMember(row *sql.Row) (*models.Member, error) {
	var m models.Member
	var phone, collector sql.NullString
	var authUserID uuid.NullUUID

	err := row.Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt, &m.MemberNumber, &m.FullName, &m.Email,
		&phone, &m.Status, &authUserID, &m.FirstTimeLogin, &m.PasswordChanged,
		&m.EmailVerified, &m.ProfileCompleted, &m.RegistrationCompleted,
		&m.FailedLoginCount, &collector)
	if err != nil {
		return nil, err
	}

	m.Phone = phone.String
	m.Collector = collector.String
	if authUserID.Valid {
		id := authUserID.UUID
		m.AuthUserID = &id
	}
	return &m, nil
}

// GetByNumber fetches a member by member number.
func (s *MemberStore) GetByNumber(ctx context.Context, number string) (*models.Member, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE member_number = $1`, number)

	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, auth.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetByAuthUserID fetches the member linked to an auth account.
func (s *MemberStore) GetByAuthUserID(ctx context.Context, authUserID uuid.UUID) (*models.Member, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE auth_user_id = $1`, authUserID)

	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, auth.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// List returns members ordered by member number, optionally filtered by status.
func (s *MemberStore) List(ctx context.Context, status string, limit, offset int) ([]*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY member_number LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Member
	for rows.Next() {
		var m models.Member
		var phone, collector sql.NullString
		var authUserID uuid.NullUUID

		err := rows.Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt, &m.MemberNumber, &m.FullName, &m.Email,
			&phone, &m.Status, &authUserID, &m.FirstTimeLogin, &m.PasswordChanged,
			&m.EmailVerified, &m.ProfileCompleted, &m.RegistrationCompleted,
			&m.FailedLoginCount, &collector)
		if err != nil {
			return nil, err
		}
		m.Phone = phone.String
		m.Collector = collector.String
		if authUserID.Valid {
			id := authUserID.UUID
			m.AuthUserID = &id
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// Create inserts a new member (admin import). The placeholder email and the
// pre-login flag state are set by the caller.
func (s *MemberStore) Create(ctx context.Context, m *models.Member) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, created_at, updated_at, member_number, full_name, email, phone,
			status, first_time_login, password_changed, email_verified,
			profile_completed, registration_completed, failed_login_count, collector)
		VALUES ($1, NOW(), NOW(), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, $12)
	`, m.ID, m.MemberNumber, m.FullName, m.Email, m.Phone, m.Status,
		m.FirstTimeLogin, m.PasswordChanged, m.EmailVerified,
		m.ProfileCompleted, m.RegistrationCompleted, m.Collector)
	return err
}

// SetAuthUserID backfills the auth linkage. Only touches rows where the
// linkage is still null, so a relink can never overwrite an existing one.
func (s *MemberStore) SetAuthUserID(ctx context.Context, memberID, authUserID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE members SET auth_user_id = $2, updated_at = NOW()
		WHERE id = $1 AND auth_user_id IS NULL
	`, memberID, authUserID)
	return err
}

// SetEmail updates the member's live email after a completed transition.
func (s *MemberStore) SetEmail(ctx context.Context, memberID uuid.UUID, email string, verified bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE members SET email = $2, email_verified = $3, updated_at = NOW() WHERE id = $1
	`, memberID, email, verified)
	return err
}

// SetFlags writes the completion-flag quadruple.
func (s *MemberStore) SetFlags(ctx context.Context, memberID uuid.UUID, flags models.CompletionFlags) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE members SET first_time_login = $2, password_changed = $3,
			profile_completed = $4, registration_completed = $5, updated_at = NOW()
		WHERE id = $1
	`, memberID, flags.FirstTimeLogin, flags.PasswordChanged,
		flags.ProfileCompleted, flags.RegistrationCompleted)
	return err
}

// SetStatus updates the member status (admin).
func (s *MemberStore) SetStatus(ctx context.Context, memberID uuid.UUID, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE members SET status = $2, updated_at = NOW() WHERE id = $1
	`, memberID, status)
	return err
}

// RecordFailedLogin increments the failure counter and suspends the member
// at the threshold. Returns the new count.
func (s *MemberStore) RecordFailedLogin(ctx context.Context, memberID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		UPDATE members SET failed_login_count = failed_login_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_count
	`, memberID).Scan(&count)
	if err != nil {
		return 0, err
	}

	if count >= models.MaxFailedLogins {
		_, err = s.db.ExecContext(ctx, `
			UPDATE members SET status = $2, updated_at = NOW() WHERE id = $1
		`, memberID, models.MemberStatusSuspended)
	}
	return count, err
}

// ResetFailedLogin clears the failure counter after a successful login.
func (s *MemberStore) ResetFailedLogin(ctx context.Context, memberID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE members SET failed_login_count = 0, updated_at = NOW() WHERE id = $1
	`, memberID)
	return err
}

// FactoryReset returns a member to the pre-first-login state: auth linkage
// nulled, all completion flags cleared, counters zeroed. The placeholder
// email is restored so the bootstrap login works again.
func (s *MemberStore) FactoryReset(ctx context.Context, memberID uuid.UUID, placeholderEmail string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE members SET auth_user_id = NULL, email = $2, email_verified = FALSE,
			first_time_login = TRUE, password_changed = FALSE,
			profile_completed = FALSE, registration_completed = FALSE,
			failed_login_count = 0, status = $3, updated_at = NOW()
		WHERE id = $1
	`, memberID, placeholderEmail, models.MemberStatusActive)
	return err
}
