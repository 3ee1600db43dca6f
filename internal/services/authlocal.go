package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/memberwell/memberwell-backend/internal/auth"
	"github.com/memberwell/memberwell-backend/pkg/utils"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// sessionKeyPrefix is the Redis key prefix for sessions
	sessionKeyPrefix = "session:"
	// userSessionsKeyPrefix is the Redis key prefix for the per-account
	// set of live session tokens
	userSessionsKeyPrefix = "user_sessions:"
)

// LocalAuthProvider implements auth.Provider against the auth_accounts table
// and Redis-held sessions. It stands in for the hosted auth service the rest
// of the code treats as an external collaborator.
type LocalAuthProvider struct {
	db    *sql.DB
	redis *redis.Client
}

func NewLocalAuthProvider(db *sql.DB, redisClient *redis.Client) *LocalAuthProvider {
	return &LocalAuthProvider{db: db, redis: redisClient}
}

type sessionRecord struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// SignInWithPassword verifies the credential pair and mints a session.
func (p *LocalAuthProvider) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	var userID uuid.UUID
	var passwordHash string

	err := p.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM auth_accounts WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&userID, &passwordHash)
	if err == sql.ErrNoRows {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("account lookup: %w", err)
	}

	valid, err := utils.VerifyPassword(password, passwordHash)
	if err != nil || !valid {
		return nil, auth.ErrInvalidCredentials
	}

	return p.createSession(ctx, userID, email)
}

// SignUp creates a new auth account. Returns ErrAlreadyRegistered when an
// account for the email exists; callers treat that as success.
func (p *LocalAuthProvider) SignUp(ctx context.Context, email, password string, metadata map[string]string) (uuid.UUID, error) {
	var existing uuid.UUID
	err := p.db.QueryRowContext(ctx, `
		SELECT id FROM auth_accounts WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&existing)
	if err == nil {
		return uuid.Nil, auth.ErrAlreadyRegistered
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("account lookup: %w", err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return uuid.Nil, fmt.Errorf("password hash: %w", err)
	}

	userID := uuid.New()
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO auth_accounts (id, created_at, updated_at, email, password_hash, member_number)
		VALUES ($1, NOW(), NOW(), $2, $3, $4)
	`, userID, email, hash, metadata["member_number"])
	if err != nil {
		return uuid.Nil, fmt.Errorf("account create: %w", err)
	}
	return userID, nil
}

// GetSession returns (nil, nil) when the token has no live session.
func (p *LocalAuthProvider) GetSession(ctx context.Context, token string) (*auth.Session, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := p.redis.Get(ctx, sessionKeyPrefix+token).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return &auth.Session{Token: token, UserID: rec.UserID, Email: rec.Email}, nil
}

// UpdatePassword replaces the account's password hash.
func (p *LocalAuthProvider) UpdatePassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("password hash: %w", err)
	}

	res, err := p.db.ExecContext(ctx, `
		UPDATE auth_accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, userID, hash)
	if err != nil {
		return fmt.Errorf("password update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no auth account %s", userID)
	}
	return nil
}

// UpdateEmail replaces the account's login email.
func (p *LocalAuthProvider) UpdateEmail(ctx context.Context, userID uuid.UUID, newEmail string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE auth_accounts SET email = $2, updated_at = NOW() WHERE id = $1
	`, userID, newEmail)
	if err != nil {
		return fmt.Errorf("email update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no auth account %s", userID)
	}
	return nil
}

// SignOut removes a single session.
func (p *LocalAuthProvider) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	raw, err := p.redis.Get(ctx, sessionKeyPrefix+token).Result()
	if err == nil {
		var rec sessionRecord
		if json.Unmarshal([]byte(raw), &rec) == nil {
			p.redis.SRem(ctx, userSessionsKeyPrefix+rec.UserID.String(), token)
		}
	}
	return p.redis.Del(ctx, sessionKeyPrefix+token).Err()
}

// SignOutAll removes every session of the account (password change, factory
// reset).
func (p *LocalAuthProvider) SignOutAll(ctx context.Context, userID uuid.UUID) error {
	setKey := userSessionsKeyPrefix + userID.String()
	tokens, err := p.redis.SMembers(ctx, setKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, token := range tokens {
		p.redis.Del(ctx, sessionKeyPrefix+token)
	}
	return p.redis.Del(ctx, setKey).Err()
}

// DeleteAccount removes the account and its sessions.
func (p *LocalAuthProvider) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := p.SignOutAll(ctx, userID); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, `DELETE FROM auth_accounts WHERE id = $1`, userID)
	return err
}

func (p *LocalAuthProvider) createSession(ctx context.Context, userID uuid.UUID, email string) (*auth.Session, error) {
	token, err := utils.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}

	raw, err := json.Marshal(sessionRecord{UserID: userID, Email: email})
	if err != nil {
		return nil, err
	}

	if err := p.redis.Set(ctx, sessionKeyPrefix+token, raw, SessionDuration).Err(); err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	setKey := userSessionsKeyPrefix + userID.String()
	if err := p.redis.SAdd(ctx, setKey, token).Err(); err != nil {
		return nil, fmt.Errorf("session index: %w", err)
	}
	p.redis.Expire(ctx, setKey, SessionDuration)

	return &auth.Session{Token: token, UserID: userID, Email: email}, nil
}
