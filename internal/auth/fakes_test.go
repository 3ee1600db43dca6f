package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/memberwell/memberwell-backend/internal/models"
)

// In-memory collaborators for the flow tests. They follow the same contracts
// as the real implementations in internal/services and internal/store.

type fakeProvider struct {
	passwords map[string]string
	ids       map[string]uuid.UUID
	sessions  map[string]*Session

	// dropSessions makes GetSession report no session even right after a
	// successful sign-in.
	dropSessions bool
	// wrapErrors wraps every sentinel the way a layered provider might.
	wrapErrors bool
	signUpErr  error

	tokenSeq int

	signUpCalls   int
	signedOut     []string
	signedOutAll  []uuid.UUID
	deletedAccts  []uuid.UUID
	updatedEmails map[uuid.UUID]string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		passwords:     map[string]string{},
		ids:           map[string]uuid.UUID{},
		sessions:      map[string]*Session{},
		updatedEmails: map[uuid.UUID]string{},
	}
}

func (p *fakeProvider) addAccount(email, password string) uuid.UUID {
	id := uuid.New()
	p.passwords[email] = password
	p.ids[email] = id
	return id
}

func (p *fakeProvider) fail(err error) error {
	if p.wrapErrors {
		return fmt.Errorf("provider: %w", err)
	}
	return err
}

func (p *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	stored, ok := p.passwords[email]
	if !ok || stored != password {
		return nil, p.fail(ErrInvalidCredentials)
	}
	p.tokenSeq++
	s := &Session{
		Token:  fmt.Sprintf("tok-%d", p.tokenSeq),
		UserID: p.ids[email],
		Email:  email,
	}
	p.sessions[s.Token] = s
	return s, nil
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password string, metadata map[string]string) (uuid.UUID, error) {
	p.signUpCalls++
	if p.signUpErr != nil {
		return uuid.Nil, p.signUpErr
	}
	if _, ok := p.passwords[email]; ok {
		return uuid.Nil, p.fail(ErrAlreadyRegistered)
	}
	return p.addAccount(email, password), nil
}

func (p *fakeProvider) GetSession(ctx context.Context, token string) (*Session, error) {
	if p.dropSessions {
		return nil, nil
	}
	return p.sessions[token], nil
}

func (p *fakeProvider) UpdatePassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	for email, id := range p.ids {
		if id == userID {
			p.passwords[email] = newPassword
			return nil
		}
	}
	return fmt.Errorf("no account %s", userID)
}

func (p *fakeProvider) UpdateEmail(ctx context.Context, userID uuid.UUID, newEmail string) error {
	for email, id := range p.ids {
		if id == userID {
			p.passwords[newEmail] = p.passwords[email]
			delete(p.passwords, email)
			delete(p.ids, email)
			p.ids[newEmail] = id
			p.updatedEmails[userID] = newEmail
			return nil
		}
	}
	return fmt.Errorf("no account %s", userID)
}

func (p *fakeProvider) SignOut(ctx context.Context, token string) error {
	p.signedOut = append(p.signedOut, token)
	delete(p.sessions, token)
	return nil
}

func (p *fakeProvider) SignOutAll(ctx context.Context, userID uuid.UUID) error {
	p.signedOutAll = append(p.signedOutAll, userID)
	for token, s := range p.sessions {
		if s.UserID == userID {
			delete(p.sessions, token)
		}
	}
	return nil
}

func (p *fakeProvider) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	p.deletedAccts = append(p.deletedAccts, userID)
	return p.SignOutAll(ctx, userID)
}

type fakeMemberStore struct {
	members map[string]*models.Member

	setAuthCalls    int
	resetFailedCall int
}

func newFakeMemberStore(members ...*models.Member) *fakeMemberStore {
	s := &fakeMemberStore{members: map[string]*models.Member{}}
	for _, m := range members {
		s.members[m.MemberNumber] = m
	}
	return s
}

func (s *fakeMemberStore) GetByNumber(ctx context.Context, number string) (*models.Member, error) {
	m, ok := s.members[number]
	if !ok {
		return nil, ErrMemberNotFound
	}
	return m, nil
}

func (s *fakeMemberStore) SetAuthUserID(ctx context.Context, memberID, authUserID uuid.UUID) error {
	s.setAuthCalls++
	for _, m := range s.members {
		if m.ID == memberID && m.AuthUserID == nil {
			id := authUserID
			m.AuthUserID = &id
		}
	}
	return nil
}

func (s *fakeMemberStore) SetEmail(ctx context.Context, memberID uuid.UUID, email string, verified bool) error {
	for _, m := range s.members {
		if m.ID == memberID {
			m.Email = email
			m.EmailVerified = verified
		}
	}
	return nil
}

func (s *fakeMemberStore) SetFlags(ctx context.Context, memberID uuid.UUID, flags models.CompletionFlags) error {
	for _, m := range s.members {
		if m.ID == memberID {
			m.CompletionFlags = flags
		}
	}
	return nil
}

func (s *fakeMemberStore) RecordFailedLogin(ctx context.Context, memberID uuid.UUID) (int, error) {
	for _, m := range s.members {
		if m.ID == memberID {
			m.FailedLoginCount++
			if m.FailedLoginCount >= models.MaxFailedLogins {
				m.Status = models.MemberStatusSuspended
			}
			return m.FailedLoginCount, nil
		}
	}
	return 0, ErrMemberNotFound
}

func (s *fakeMemberStore) ResetFailedLogin(ctx context.Context, memberID uuid.UUID) error {
	s.resetFailedCall++
	for _, m := range s.members {
		if m.ID == memberID {
			m.FailedLoginCount = 0
		}
	}
	return nil
}

type fakeProfileStore struct {
	profiles    map[uuid.UUID]*models.Profile
	createCalls int
	getErr      error
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: map[uuid.UUID]*models.Profile{}}
}

func (s *fakeProfileStore) Get(ctx context.Context, authUserID uuid.UUID) (*models.Profile, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.profiles[authUserID], nil
}

func (s *fakeProfileStore) Create(ctx context.Context, p *models.Profile) error {
	s.createCalls++
	s.profiles[p.ID] = p
	return nil
}

type fakeTransitionStore struct {
	rows []*models.EmailTransition
}

func (s *fakeTransitionStore) Latest(ctx context.Context, memberNumber string) (*models.EmailTransition, error) {
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].MemberNumber == memberNumber {
			return s.rows[i], nil
		}
	}
	return nil, nil
}

func (s *fakeTransitionStore) Create(ctx context.Context, t *models.EmailTransition) error {
	s.rows = append(s.rows, t)
	return nil
}

func (s *fakeTransitionStore) GetByToken(ctx context.Context, token string) (*models.EmailTransition, error) {
	for _, t := range s.rows {
		if t.Token == token {
			return t, nil
		}
	}
	return nil, nil
}

func (s *fakeTransitionStore) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	for _, t := range s.rows {
		if t.ID == id {
			t.Status = models.TransitionCompleted
			now := time.Now()
			t.CompletedAt = &now
		}
	}
	return nil
}

func (s *fakeTransitionStore) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	for _, t := range s.rows {
		if t.ID == id {
			t.Status = models.TransitionFailed
			t.ErrorMessage = errorMessage
		}
	}
	return nil
}

type fakeResetTokenStore struct {
	rows []*models.PasswordResetToken
}

func (s *fakeResetTokenStore) Create(ctx context.Context, t *models.PasswordResetToken) error {
	s.rows = append(s.rows, t)
	return nil
}

func (s *fakeResetTokenStore) GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	for _, t := range s.rows {
		if t.Token == token {
			return t, nil
		}
	}
	return nil, nil
}

func (s *fakeResetTokenStore) MarkUsed(ctx context.Context, id uuid.UUID) error {
	for _, t := range s.rows {
		if t.ID == id {
			t.Used = true
		}
	}
	return nil
}

type fakeAuditor struct {
	entries []*models.AuditEntry
}

func (a *fakeAuditor) Record(ctx context.Context, e *models.AuditEntry) {
	a.entries = append(a.entries, e)
}

func (a *fakeAuditor) operations() []string {
	ops := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		ops = append(ops, e.Operation)
	}
	return ops
}

type sentMail struct {
	To      string
	Subject string
	HTML    string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, html string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: html})
	return uuid.New().String(), nil
}

type fakeRateLimiter struct {
	retryAfter int
	calls      int
}

func (l *fakeRateLimiter) Allow(ctx context.Context, ip, memberNumber string) (int, error) {
	l.calls++
	return l.retryAfter, nil
}

// testMember builds a freshly imported member: placeholder email, first login
// still pending.
func testMember(number string) *models.Member {
	return &models.Member{
		ID:           uuid.New(),
		MemberNumber: number,
		FullName:     "Test Member",
		Email:        PlaceholderEmail(number),
		Status:       models.MemberStatusActive,
		CompletionFlags: models.CompletionFlags{
			FirstTimeLogin: true,
		},
	}
}
