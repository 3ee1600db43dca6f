package auth

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/memberwell/memberwell-backend/internal/models"
	"github.com/memberwell/memberwell-backend/pkg/utils"
)

// EmailTransitionService runs the token-based state machine that moves a
// member's login email from the placeholder address to a real personal one.
type EmailTransitionService struct {
	Transitions TransitionStore
	Members     MemberStore
	Provider    Provider
	Mailer      Mailer
	Audit       Auditor

	// VerifyBaseURL is the frontend page the emailed link points at; the
	// token is appended as a query parameter.
	VerifyBaseURL string
}

// Request opens a new transition for the member. Refused while the latest
// transition is still undecided; a failed one re-opens the ability.
func (s *EmailTransitionService) Request(ctx context.Context, member *models.Member, newEmail string) (*models.EmailTransition, error) {
	if _, err := mail.ParseAddress(newEmail); err != nil {
		return nil, &ValidationError{Field: "new_email", Message: "Enter a valid email address"}
	}
	if IsPlaceholderEmail(newEmail) {
		return nil, &ValidationError{Field: "new_email", Message: "Enter a personal email address"}
	}

	latest, err := s.Transitions.Latest(ctx, member.MemberNumber)
	if err != nil {
		return nil, fmt.Errorf("transition lookup: %w", err)
	}
	// An undecided transition whose token already expired no longer blocks:
	// the member may have lost the email and must be able to start over.
	if latest != nil && latest.Active() && time.Now().Before(latest.ExpiresAt) {
		return nil, ErrTransitionInFlight
	}

	token, err := utils.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("token generation: %w", err)
	}

	corr := uuid.New()
	now := time.Now()
	t := &models.EmailTransition{
		ID:           uuid.New(),
		CreatedAt:    now,
		MemberNumber: member.MemberNumber,
		OldEmail:     loginEmail(member),
		NewEmail:     newEmail,
		Token:        token,
		ExpiresAt:    now.Add(models.TransitionTokenTTL),
		Status:       models.TransitionPending,
	}
	if err := s.Transitions.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("transition create: %w", err)
	}

	// The verification link goes to the NEW address: only someone who can
	// read that mailbox may complete the change.
	subject := "Verify your new email address"
	html := verificationEmailHTML(member.MemberNumber, s.VerifyBaseURL, token)
	if _, err := s.Mailer.Send(ctx, newEmail, subject, html); err != nil {
		s.fail(ctx, corr, t, "verification email could not be sent: "+err.Error())
		return nil, fmt.Errorf("verification email: %w", err)
	}

	s.Audit.Record(ctx, &models.AuditEntry{
		Operation:     "email_transition_requested",
		TableName:     "email_transitions",
		RecordID:      t.ID.String(),
		Severity:      models.SeverityInfo,
		CorrelationID: corr,
		Metadata: map[string]string{
			"member_number": member.MemberNumber,
			"new_email":     newEmail,
		},
	})
	return t, nil
}

// Verify consumes a verification token. On success the auth account email and
// the member row email are updated before the record is marked completed.
// Unknown, expired and already-decided tokens all surface as ErrInvalidToken.
func (s *EmailTransitionService) Verify(ctx context.Context, token string) (*models.EmailTransition, error) {
	t, err := s.Transitions.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("transition lookup: %w", err)
	}
	if t == nil || !t.Active() {
		return nil, ErrInvalidToken
	}

	corr := uuid.New()
	if time.Now().After(t.ExpiresAt) {
		s.fail(ctx, corr, t, "verification token expired")
		return nil, ErrInvalidToken
	}

	member, err := s.Members.GetByNumber(ctx, t.MemberNumber)
	if err != nil {
		s.fail(ctx, corr, t, "member lookup failed: "+err.Error())
		return nil, fmt.Errorf("member lookup: %w", err)
	}
	if member.AuthUserID == nil {
		s.fail(ctx, corr, t, "member has no linked auth account")
		return nil, ErrInvalidToken
	}

	if err := s.Provider.UpdateEmail(ctx, *member.AuthUserID, t.NewEmail); err != nil {
		s.fail(ctx, corr, t, "auth email update failed: "+err.Error())
		return nil, fmt.Errorf("auth email update: %w", err)
	}
	if err := s.Members.SetEmail(ctx, member.ID, t.NewEmail, true); err != nil {
		s.fail(ctx, corr, t, "member email update failed: "+err.Error())
		return nil, fmt.Errorf("member email update: %w", err)
	}

	if err := s.Transitions.MarkCompleted(ctx, t.ID); err != nil {
		// The email change itself is live; only the record lags behind.
		log.Printf("email transition %s: marking completed: %v", t.ID, err)
	}
	t.Status = models.TransitionCompleted

	s.Audit.Record(ctx, &models.AuditEntry{
		Operation:     "email_transition_completed",
		TableName:     "email_transitions",
		RecordID:      t.ID.String(),
		Severity:      models.SeverityInfo,
		ActorID:       member.AuthUserID,
		CorrelationID: corr,
		Metadata: map[string]string{
			"member_number": t.MemberNumber,
			"old_email":     t.OldEmail,
			"new_email":     t.NewEmail,
		},
	})
	return t, nil
}

// Latest returns the member's most recent transition so the UI can decide
// whether to offer a new request.
func (s *EmailTransitionService) Latest(ctx context.Context, memberNumber string) (*models.EmailTransition, error) {
	return s.Transitions.Latest(ctx, memberNumber)
}

func (s *EmailTransitionService) fail(ctx context.Context, corr uuid.UUID, t *models.EmailTransition, msg string) {
	if err := s.Transitions.MarkFailed(ctx, t.ID, msg); err != nil {
		log.Printf("email transition %s: marking failed: %v", t.ID, err)
	}
	t.Status = models.TransitionFailed
	t.ErrorMessage = msg

	s.Audit.Record(ctx, &models.AuditEntry{
		Operation:     "email_transition_failed",
		TableName:     "email_transitions",
		RecordID:      t.ID.String(),
		Severity:      models.SeverityWarning,
		CorrelationID: corr,
		Metadata: map[string]string{
			"member_number": t.MemberNumber,
			"error":         msg,
		},
	})
}

func verificationEmailHTML(memberNumber, baseURL, token string) string {
	link := fmt.Sprintf("%s?token=%s", baseURL, token)
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Memberwell email verification</h2>
    <p>A request was made to use this address for member account %s.</p>
    <p><a href="%s" style="display:inline-block;padding:12px 20px;background:#22c55e;color:#fff;text-decoration:none;border-radius:8px;font-weight:bold;">Verify this address</a></p>
    <p>The link is valid for 24 hours. If you did not request this, ignore this email.</p>
  </div>
</body>
</html>`, memberNumber, link)
}
