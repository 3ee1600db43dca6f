package auth

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/memberwell/memberwell-backend/internal/models"
)

// Criticality is the explicit failure policy of a post-session step.
// BestEffort failures are logged and audited but never fail the login;
// Required failures propagate.
type Criticality int

const (
	BestEffort Criticality = iota
	Required
)

// LoginService orchestrates member login: resolve the member number, clear
// any stale session, sign in, bootstrap the auth account on the first-ever
// attempt, re-check the session and link the identities.
type LoginService struct {
	Provider Provider
	Members  MemberStore
	Profiles ProfileStore
	Audit    Auditor
}

// LoginResult is what a successful login hands back to the handler.
type LoginResult struct {
	Session       *Session      `json:"session"`
	Member        *models.Member `json:"member"`
	State         MemberState   `json:"state"`
	CorrelationID uuid.UUID     `json:"correlation_id"`
}

// Login runs the full flow for a member-number + password pair. priorToken,
// if non-empty, is an existing session the client still holds; it is cleared
// first so state from a different member cannot leak into this login.
func (s *LoginService) Login(ctx context.Context, rawNumber, password, priorToken string) (*LoginResult, error) {
	number := NormalizeMemberNumber(rawNumber)
	if err := ValidateMemberNumber(number); err != nil {
		return nil, err
	}

	member, err := s.Members.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			// Indistinguishable from a wrong password on the login surface.
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("member lookup: %w", err)
	}
	if member.Status == models.MemberStatusSuspended || member.Status == models.MemberStatusDeceased {
		return nil, ErrMemberSuspended
	}

	email := loginEmail(member)
	corr := uuid.New()

	if priorToken != "" {
		if err := s.Provider.SignOut(ctx, priorToken); err != nil {
			log.Printf("login %s: clearing prior session failed: %v", corr, err)
		}
	}

	sess, err := s.Provider.SignInWithPassword(ctx, email, password)
	if errors.Is(err, ErrInvalidCredentials) && password == number {
		// First-ever contact: create the auth account with the member number
		// as the initial password, then try once more.
		if berr := s.bootstrap(ctx, corr, member, email); berr != nil {
			return nil, berr
		}
		sess, err = s.Provider.SignInWithPassword(ctx, email, password)
	}
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.recordFailure(ctx, corr, member)
		}
		return nil, err
	}

	// Sign-in success is not trusted at face value; confirm a durable
	// session exists before doing anything with it.
	confirmed, err := s.Provider.GetSession(ctx, sess.Token)
	if err != nil {
		return nil, fmt.Errorf("session re-check: %w", err)
	}
	if confirmed == nil {
		return nil, ErrSessionNotEstablished
	}

	s.runStep(ctx, corr, member, "reset_failed_login", BestEffort, func() error {
		return s.Members.ResetFailedLogin(ctx, member.ID)
	})

	if err := s.linkIdentity(ctx, corr, member, confirmed); err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, &models.AuditEntry{
		Operation:     "login_success",
		TableName:     "members",
		RecordID:      member.ID.String(),
		Severity:      models.SeverityInfo,
		ActorID:       &confirmed.UserID,
		CorrelationID: corr,
		Metadata:      map[string]string{"member_number": member.MemberNumber},
	})

	return &LoginResult{
		Session:       confirmed,
		Member:        member,
		State:         StateFromFlags(member.CompletionFlags),
		CorrelationID: corr,
	}, nil
}

// bootstrap creates the auth account for a first-time login. "Already
// registered" is success: a previous bootstrap got that far and the retry
// sign-in is expected to succeed.
func (s *LoginService) bootstrap(ctx context.Context, corr uuid.UUID, member *models.Member, email string) error {
	userID, err := s.Provider.SignUp(ctx, email, member.MemberNumber, map[string]string{
		"member_number": member.MemberNumber,
	})
	if err != nil && !errors.Is(err, ErrAlreadyRegistered) {
		return fmt.Errorf("account bootstrap: %w", err)
	}

	meta := map[string]string{"member_number": member.MemberNumber}
	if errors.Is(err, ErrAlreadyRegistered) {
		meta["already_registered"] = "true"
	} else {
		meta["auth_user_id"] = userID.String()
	}
	s.Audit.Record(ctx, &models.AuditEntry{
		Operation:     "account_bootstrap",
		TableName:     "members",
		RecordID:      member.ID.String(),
		Severity:      models.SeverityInfo,
		CorrelationID: corr,
		Metadata:      meta,
	})
	return nil
}

// linkIdentity backfills the member's auth-account reference (best effort)
// and ensures a profile row exists (required). Idempotent: a linked member is
// left untouched and an existing profile is never duplicated.
func (s *LoginService) linkIdentity(ctx context.Context, corr uuid.UUID, member *models.Member, sess *Session) error {
	if member.AuthUserID == nil {
		err := s.runStep(ctx, corr, member, "link_auth_account", BestEffort, func() error {
			return s.Members.SetAuthUserID(ctx, member.ID, sess.UserID)
		})
		if err == nil {
			id := sess.UserID
			member.AuthUserID = &id
		}
	}

	return s.runStep(ctx, corr, member, "ensure_profile", Required, func() error {
		profile, err := s.Profiles.Get(ctx, sess.UserID)
		if err != nil {
			return err
		}
		if profile != nil {
			return nil
		}
		return s.Profiles.Create(ctx, &models.Profile{
			ID:               sess.UserID,
			Email:            sess.Email,
			ProfileCompleted: false,
		})
	})
}

// runStep executes one named step under its criticality policy.
func (s *LoginService) runStep(ctx context.Context, corr uuid.UUID, member *models.Member, name string, c Criticality, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	log.Printf("login %s: step %s failed: %v", corr, name, err)
	s.Audit.Record(ctx, &models.AuditEntry{
		Operation:     "login_step_failed",
		TableName:     "members",
		RecordID:      member.ID.String(),
		Severity:      models.SeverityWarning,
		CorrelationID: corr,
		Metadata:      map[string]string{"step": name, "error": err.Error()},
	})

	if c == Required {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (s *LoginService) recordFailure(ctx context.Context, corr uuid.UUID, member *models.Member) {
	count, err := s.Members.RecordFailedLogin(ctx, member.ID)
	if err != nil {
		log.Printf("login %s: recording failed attempt: %v", corr, err)
	}
	s.Audit.Record(ctx, &models.AuditEntry{
		Operation:     "login_failed",
		TableName:     "members",
		RecordID:      member.ID.String(),
		Severity:      models.SeverityWarning,
		CorrelationID: corr,
		Metadata: map[string]string{
			"member_number": member.MemberNumber,
			"failed_count":  fmt.Sprintf("%d", count),
		},
	})
}

// ChangePassword updates the password of a logged-in member, flips the
// completion flags and reissues a fresh session so older sessions die with
// the old password.
func (s *LoginService) ChangePassword(ctx context.Context, sess *Session, member *models.Member, newPassword string) (*Session, error) {
	if len(newPassword) < 8 {
		return nil, &ValidationError{Field: "password", Message: "Password must be at least 8 characters"}
	}
	if newPassword == member.MemberNumber {
		return nil, &ValidationError{Field: "password", Message: "Password must differ from the member number"}
	}

	corr := uuid.New()
	if err := s.Provider.UpdatePassword(ctx, sess.UserID, newPassword); err != nil {
		return nil, fmt.Errorf("password update: %w", err)
	}

	flags := member.CompletionFlags
	flags.PasswordChanged = true
	flags.FirstTimeLogin = false
	s.runStep(ctx, corr, member, "set_password_flags", BestEffort, func() error {
		return s.Members.SetFlags(ctx, member.ID, flags)
	})
	member.CompletionFlags = flags

	s.Audit.Record(ctx, &models.AuditEntry{
		Operation:     "password_changed",
		TableName:     "members",
		RecordID:      member.ID.String(),
		Severity:      models.SeverityInfo,
		ActorID:       &sess.UserID,
		CorrelationID: corr,
	})

	if err := s.Provider.SignOutAll(ctx, sess.UserID); err != nil {
		log.Printf("login %s: invalidating old sessions: %v", corr, err)
	}
	fresh, err := s.Provider.SignInWithPassword(ctx, sess.Email, newPassword)
	if err != nil {
		// The password change itself succeeded; the member can log in again.
		return nil, nil
	}
	return fresh, nil
}

// loginEmail picks the address the auth account is keyed by: the verified
// personal email once a transition completed, the placeholder otherwise.
func loginEmail(m *models.Member) string {
	if m.EmailVerified && !IsPlaceholderEmail(m.Email) {
		return m.Email
	}
	return PlaceholderEmail(m.MemberNumber)
}
