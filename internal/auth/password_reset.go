package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/memberwell/memberwell-backend/internal/models"
	"github.com/memberwell/memberwell-backend/pkg/utils"
)

// PasswordResetService issues and consumes single-use reset tokens, rate
// limited per (client IP, member number).
type PasswordResetService struct {
	Members     MemberStore
	Tokens      ResetTokenStore
	Transitions TransitionStore
	Provider    Provider
	Mailer      Mailer
	Audit       Auditor
	RateLimit   ResetRateLimiter

	// ResetBaseURL is the frontend reset page; the token is appended as a
	// query parameter.
	ResetBaseURL string
	// VerifyBaseURL is the email-verification page used when the member is
	// still on a placeholder address.
	VerifyBaseURL string
}

// ResetRequestResult tells the caller which branch the request took.
type ResetRequestResult struct {
	// RequiresVerification is true when the member has no real email yet:
	// no reset token is issued and the member must verify a personal
	// address first.
	RequiresVerification bool `json:"requires_verification"`
}

// RequestReset starts the flow for a member number. Fails with
// ErrMemberNotFound when no member matches and with *RateLimitError when the
// (ip, member) pair exhausted its window; neither case creates a token.
func (s *PasswordResetService) RequestReset(ctx context.Context, rawNumber, clientIP string) (*ResetRequestResult, error) {
	number := NormalizeMemberNumber(rawNumber)
	if err := ValidateMemberNumber(number); err != nil {
		return nil, err
	}

	member, err := s.Members.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("member lookup: %w", err)
	}

	retryAfter, err := s.RateLimit.Allow(ctx, clientIP, number)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if retryAfter > 0 {
		return nil, &RateLimitError{RetryAfterSeconds: retryAfter}
	}

	corr := uuid.New()

	if IsPlaceholderEmail(member.Email) {
		// No real mailbox to send a reset link to. The member must verify a
		// personal address first. If a verification is already in flight its
		// email is re-sent; the dispatched email carries the verification
		// token, not a reset one.
		s.resendVerification(ctx, member)
		s.Audit.Record(ctx, &models.AuditEntry{
			Operation:     "password_reset_requires_verification",
			TableName:     "members",
			RecordID:      member.ID.String(),
			Severity:      models.SeverityInfo,
			CorrelationID: corr,
			Metadata:      map[string]string{"member_number": number, "ip": clientIP},
		})
		return &ResetRequestResult{RequiresVerification: true}, nil
	}

	token, err := utils.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("token generation: %w", err)
	}
	now := time.Now()
	rec := &models.PasswordResetToken{
		ID:           uuid.New(),
		CreatedAt:    now,
		MemberNumber: number,
		Token:        token,
		ExpiresAt:    now.Add(models.ResetTokenTTL),
	}
	if err := s.Tokens.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("reset token create: %w", err)
	}

	subject := "Reset your Memberwell password"
	html := resetEmailHTML(number, s.ResetBaseURL, token)
	if _, err := s.Mailer.Send(ctx, member.Email, subject, html); err != nil {
		return nil, fmt.Errorf("reset email: %w", err)
	}

	s.Audit.Record(ctx, &models.AuditEntry{
		Operation:     "password_reset_requested",
		TableName:     "password_reset_tokens",
		RecordID:      rec.ID.String(),
		Severity:      models.SeverityInfo,
		CorrelationID: corr,
		Metadata:      map[string]string{"member_number": number, "ip": clientIP},
	})
	return &ResetRequestResult{}, nil
}

// resendVerification re-dispatches the verification email of the member's
// in-flight transition, if any. Best-effort: the reset request reports
// requires_verification either way.
func (s *PasswordResetService) resendVerification(ctx context.Context, member *models.Member) {
	latest, err := s.Transitions.Latest(ctx, member.MemberNumber)
	if err != nil || latest == nil || !latest.Active() || time.Now().After(latest.ExpiresAt) {
		return
	}

	subject := "Verify your new email address"
	html := verificationEmailHTML(member.MemberNumber, s.VerifyBaseURL, latest.Token)
	if _, err := s.Mailer.Send(ctx, latest.NewEmail, subject, html); err != nil {
		log.Printf("password reset %s: re-sending verification email: %v", member.MemberNumber, err)
	}
}

// CompleteReset consumes a reset token and sets the new password. The token
// must exist, be unused and unexpired; afterwards it is marked used and the
// account's sessions are invalidated. Bookkeeping failures after a successful
// password update are logged, never surfaced.
func (s *PasswordResetService) CompleteReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return &ValidationError{Field: "password", Message: "Password must be at least 8 characters"}
	}

	rec, err := s.Tokens.GetByToken(ctx, token)
	if err != nil {
		return fmt.Errorf("token lookup: %w", err)
	}
	if rec == nil || !rec.Valid(time.Now()) {
		return ErrInvalidToken
	}

	member, err := s.Members.GetByNumber(ctx, rec.MemberNumber)
	if err != nil {
		return fmt.Errorf("member lookup: %w", err)
	}
	if member.AuthUserID == nil {
		// Pre-bootstrap members have no account to reset; their password is
		// still the member number.
		return ErrInvalidToken
	}
	if newPassword == member.MemberNumber {
		return &ValidationError{Field: "password", Message: "Password must differ from the member number"}
	}

	if err := s.Provider.UpdatePassword(ctx, *member.AuthUserID, newPassword); err != nil {
		return fmt.Errorf("password update: %w", err)
	}

	// From here on the password change is live and must not be reverted.
	corr := uuid.New()
	if err := s.Tokens.MarkUsed(ctx, rec.ID); err != nil {
		log.Printf("password reset %s: marking token used: %v", rec.ID, err)
	}
	flags := member.CompletionFlags
	flags.PasswordChanged = true
	flags.FirstTimeLogin = false
	if err := s.Members.SetFlags(ctx, member.ID, flags); err != nil {
		log.Printf("password reset %s: updating flags: %v", rec.ID, err)
	}
	if err := s.Provider.SignOutAll(ctx, *member.AuthUserID); err != nil {
		log.Printf("password reset %s: invalidating sessions: %v", rec.ID, err)
	}

	s.Audit.Record(ctx, &models.AuditEntry{
		Operation:     "password_reset_completed",
		TableName:     "password_reset_tokens",
		RecordID:      rec.ID.String(),
		Severity:      models.SeverityInfo,
		ActorID:       member.AuthUserID,
		CorrelationID: corr,
		Metadata:      map[string]string{"member_number": rec.MemberNumber},
	})
	return nil
}

func resetEmailHTML(memberNumber, baseURL, token string) string {
	link := fmt.Sprintf("%s?token=%s", baseURL, token)
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Memberwell password reset</h2>
    <p>A password reset was requested for member account %s.</p>
    <p><a href="%s" style="display:inline-block;padding:12px 20px;background:#0f172a;color:#fff;text-decoration:none;border-radius:8px;font-weight:bold;">Choose a new password</a></p>
    <p>The link is valid for 1 hour and can be used once. If you did not request this, ignore this email.</p>
  </div>
</body>
</html>`, memberNumber, link)
}
