package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/memberwell/memberwell-backend/internal/models"
)

// Session is a live auth session as confirmed by the provider.
type Session struct {
	Token  string    `json:"token"`
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// Provider is the external auth collaborator. The orchestration code in this
// package depends only on this contract; the concrete implementation lives in
// internal/services.
type Provider interface {
	// SignInWithPassword returns ErrInvalidCredentials when the pair is
	// rejected. A nil error does not guarantee a durable session; callers
	// re-check with GetSession.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// SignUp returns ErrAlreadyRegistered when an account for email exists.
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (uuid.UUID, error)
	// GetSession returns (nil, nil) when no session exists for the token.
	GetSession(ctx context.Context, token string) (*Session, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, newPassword string) error
	UpdateEmail(ctx context.Context, userID uuid.UUID, newEmail string) error
	SignOut(ctx context.Context, token string) error
	// SignOutAll invalidates every session of the account (password change).
	SignOutAll(ctx context.Context, userID uuid.UUID) error
	// DeleteAccount removes the account and its sessions (factory reset).
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

// MemberStore reads and mutates member rows.
type MemberStore interface {
	// GetByNumber returns ErrMemberNotFound when no row matches.
	GetByNumber(ctx context.Context, number string) (*models.Member, error)
	SetAuthUserID(ctx context.Context, memberID, authUserID uuid.UUID) error
	SetEmail(ctx context.Context, memberID uuid.UUID, email string, verified bool) error
	SetFlags(ctx context.Context, memberID uuid.UUID, flags models.CompletionFlags) error
	// RecordFailedLogin increments the failure counter and suspends the
	// member once the threshold is reached. Returns the new count.
	RecordFailedLogin(ctx context.Context, memberID uuid.UUID) (int, error)
	ResetFailedLogin(ctx context.Context, memberID uuid.UUID) error
}

// ProfileStore reads and creates profile rows keyed by auth account id.
type ProfileStore interface {
	// Get returns (nil, nil) when no profile exists.
	Get(ctx context.Context, authUserID uuid.UUID) (*models.Profile, error)
	Create(ctx context.Context, p *models.Profile) error
}

// TransitionStore persists email transition records.
type TransitionStore interface {
	// Latest returns the most recently created transition for the member,
	// or (nil, nil) when there is none.
	Latest(ctx context.Context, memberNumber string) (*models.EmailTransition, error)
	Create(ctx context.Context, t *models.EmailTransition) error
	// GetByToken returns (nil, nil) when no row carries the token.
	GetByToken(ctx context.Context, token string) (*models.EmailTransition, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// ResetTokenStore persists password reset tokens.
type ResetTokenStore interface {
	Create(ctx context.Context, t *models.PasswordResetToken) error
	// GetByToken returns (nil, nil) when no row carries the token.
	GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID) error
}

// Auditor appends audit entries. Implementations are best-effort: they log
// failures and never return them, so bookkeeping cannot fail a flow.
type Auditor interface {
	Record(ctx context.Context, e *models.AuditEntry)
}

// Mailer sends a transactional email and returns the provider message id.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) (string, error)
}

// ResetRateLimiter gates password-reset requests per (client IP, member
// number). Allow returns 0 when the request may proceed, otherwise the
// seconds the caller must wait.
type ResetRateLimiter interface {
	Allow(ctx context.Context, ip, memberNumber string) (retryAfterSeconds int, err error)
}
