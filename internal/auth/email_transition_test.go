package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberwell/memberwell-backend/internal/models"
)

func newTransitionService(members *fakeMemberStore) (*EmailTransitionService, *fakeTransitionStore, *fakeProvider, *fakeMailer, *fakeAuditor) {
	transitions := &fakeTransitionStore{}
	provider := newFakeProvider()
	mailer := &fakeMailer{}
	audit := &fakeAuditor{}
	svc := &EmailTransitionService{
		Transitions:   transitions,
		Members:       members,
		Provider:      provider,
		Mailer:        mailer,
		Audit:         audit,
		VerifyBaseURL: "https://app.memberwell.org/verify-email",
	}
	return svc, transitions, provider, mailer, audit
}

func TestTransitionRequestSendsToNewAddress(t *testing.T) {
	member := testMember("TM10003")
	svc, transitions, _, mailer, audit := newTransitionService(newFakeMemberStore(member))

	tr, err := svc.Request(context.Background(), member, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.TransitionPending, tr.Status)
	assert.Equal(t, PlaceholderEmail("TM10003"), tr.OldEmail)
	assert.Equal(t, "jane@example.com", tr.NewEmail)
	assert.WithinDuration(t, time.Now().Add(models.TransitionTokenTTL), tr.ExpiresAt, time.Minute)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "jane@example.com", mailer.sent[0].To, "link goes to the mailbox being claimed")
	assert.Contains(t, mailer.sent[0].HTML, tr.Token)

	assert.Len(t, transitions.rows, 1)
	assert.Contains(t, audit.operations(), "email_transition_requested")
}

func TestTransitionRequestRejectsBadTargets(t *testing.T) {
	member := testMember("TM10003")
	svc, _, _, mailer, _ := newTransitionService(newFakeMemberStore(member))

	var verr *ValidationError
	_, err := svc.Request(context.Background(), member, "not-an-email")
	require.ErrorAs(t, err, &verr)

	_, err = svc.Request(context.Background(), member, "tm10004@members.memberwell.org")
	require.ErrorAs(t, err, &verr, "placeholder addresses are not personal mailboxes")

	_, err = svc.Request(context.Background(), member, "tm10003@memberwell.local")
	require.ErrorAs(t, err, &verr, "legacy placeholder domain is rejected too")

	assert.Empty(t, mailer.sent)
}

func TestTransitionRequestRefusedWhileInFlight(t *testing.T) {
	member := testMember("TM10003")
	svc, _, _, _, _ := newTransitionService(newFakeMemberStore(member))

	_, err := svc.Request(context.Background(), member, "jane@example.com")
	require.NoError(t, err)

	_, err = svc.Request(context.Background(), member, "other@example.com")
	assert.ErrorIs(t, err, ErrTransitionInFlight)
}

func TestTransitionRequestAllowedAfterTokenExpiry(t *testing.T) {
	// A pending transition whose token expired must not block forever; the
	// verification email may simply never have arrived.
	member := testMember("TM10003")
	svc, transitions, _, mailer, _ := newTransitionService(newFakeMemberStore(member))

	first, err := svc.Request(context.Background(), member, "jane@example.com")
	require.NoError(t, err)
	first.ExpiresAt = time.Now().Add(-time.Minute)

	second, err := svc.Request(context.Background(), member, "jane@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)
	assert.Len(t, transitions.rows, 2)
	assert.Len(t, mailer.sent, 2)
}

func TestTransitionRequestReopensAfterFailure(t *testing.T) {
	member := testMember("TM10003")
	svc, transitions, _, mailer, _ := newTransitionService(newFakeMemberStore(member))

	// The first request dies on the mailer and is marked failed.
	mailer.err = errors.New("smtp down")
	_, err := svc.Request(context.Background(), member, "jane@example.com")
	require.Error(t, err)
	require.Len(t, transitions.rows, 1)
	assert.Equal(t, models.TransitionFailed, transitions.rows[0].Status)

	// A failed transition does not block the next attempt.
	mailer.err = nil
	_, err = svc.Request(context.Background(), member, "jane@example.com")
	assert.NoError(t, err)
}

func TestTransitionVerifyHappyPath(t *testing.T) {
	member := testMember("TM10003")
	store := newFakeMemberStore(member)
	svc, _, provider, _, audit := newTransitionService(store)
	id := provider.addAccount(PlaceholderEmail("TM10003"), "chosen-password")
	member.AuthUserID = &id

	tr, err := svc.Request(context.Background(), member, "jane@example.com")
	require.NoError(t, err)

	done, err := svc.Verify(context.Background(), tr.Token)
	require.NoError(t, err)
	assert.Equal(t, models.TransitionCompleted, done.Status)

	// Auth account and member row both moved to the new address.
	assert.Equal(t, "jane@example.com", provider.updatedEmails[id])
	assert.Equal(t, "jane@example.com", member.Email)
	assert.True(t, member.EmailVerified)
	assert.Contains(t, audit.operations(), "email_transition_completed")

	// The old password now pairs with the new address.
	_, err = provider.SignInWithPassword(context.Background(), "jane@example.com", "chosen-password")
	assert.NoError(t, err)
}

func TestTransitionVerifyUnknownToken(t *testing.T) {
	svc, _, _, _, _ := newTransitionService(newFakeMemberStore())

	_, err := svc.Verify(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTransitionVerifyExpiredToken(t *testing.T) {
	member := testMember("TM10003")
	svc, transitions, provider, _, audit := newTransitionService(newFakeMemberStore(member))
	id := provider.addAccount(PlaceholderEmail("TM10003"), "chosen-password")
	member.AuthUserID = &id

	tr, err := svc.Request(context.Background(), member, "jane@example.com")
	require.NoError(t, err)
	tr.ExpiresAt = time.Now().Add(-time.Minute)

	_, err = svc.Verify(context.Background(), tr.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, models.TransitionFailed, transitions.rows[0].Status)
	assert.Contains(t, audit.operations(), "email_transition_failed")

	// The member is untouched.
	assert.Equal(t, PlaceholderEmail("TM10003"), member.Email)
	assert.False(t, member.EmailVerified)
}

func TestTransitionVerifyIsSingleUse(t *testing.T) {
	member := testMember("TM10003")
	svc, _, provider, _, _ := newTransitionService(newFakeMemberStore(member))
	id := provider.addAccount(PlaceholderEmail("TM10003"), "chosen-password")
	member.AuthUserID = &id

	tr, err := svc.Request(context.Background(), member, "jane@example.com")
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), tr.Token)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), tr.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "a completed transition is terminal")
}

func TestTransitionVerifyRequiresLinkedAccount(t *testing.T) {
	member := testMember("TM10003")
	svc, transitions, _, _, _ := newTransitionService(newFakeMemberStore(member))

	tr, err := svc.Request(context.Background(), member, "jane@example.com")
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), tr.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, models.TransitionFailed, transitions.rows[0].Status)
}

func TestLegacyVerifyingRowsBlockNewRequests(t *testing.T) {
	member := testMember("TM10003")
	svc, transitions, _, _, _ := newTransitionService(newFakeMemberStore(member))
	transitions.rows = append(transitions.rows, &models.EmailTransition{
		MemberNumber: member.MemberNumber,
		Status:       models.TransitionVerifying,
	})

	_, err := svc.Request(context.Background(), member, "jane@example.com")
	assert.ErrorIs(t, err, ErrTransitionInFlight)
}
