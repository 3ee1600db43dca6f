package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberwell/memberwell-backend/internal/models"
)

func newLoginService(members *fakeMemberStore) (*LoginService, *fakeProvider, *fakeProfileStore, *fakeAuditor) {
	provider := newFakeProvider()
	profiles := newFakeProfileStore()
	audit := &fakeAuditor{}
	svc := &LoginService{
		Provider: provider,
		Members:  members,
		Profiles: profiles,
		Audit:    audit,
	}
	return svc, provider, profiles, audit
}

func TestLoginBootstrapsOnFirstContact(t *testing.T) {
	member := testMember("TM10003")
	svc, provider, profiles, audit := newLoginService(newFakeMemberStore(member))

	res, err := svc.Login(context.Background(), " tm10003 ", "TM10003", "")
	require.NoError(t, err)
	require.NotNil(t, res.Session)

	// The auth account was created with the placeholder address and the
	// member row got linked to it.
	assert.Equal(t, 1, provider.signUpCalls)
	require.NotNil(t, member.AuthUserID)
	assert.Equal(t, res.Session.UserID, *member.AuthUserID)
	assert.Equal(t, PlaceholderEmail("TM10003"), res.Session.Email)

	// A profile shell exists after the first login.
	assert.Equal(t, 1, profiles.createCalls)
	profile, _ := profiles.Get(context.Background(), res.Session.UserID)
	require.NotNil(t, profile)
	assert.False(t, profile.ProfileCompleted)

	assert.Equal(t, StateNewAccount, res.State)
	assert.Contains(t, audit.operations(), "account_bootstrap")
	assert.Contains(t, audit.operations(), "login_success")

	// Every row of the flow shares one correlation id.
	for _, e := range audit.entries {
		assert.Equal(t, res.CorrelationID, e.CorrelationID)
	}
}

func TestLoginSecondTimeSkipsBootstrap(t *testing.T) {
	member := testMember("TM10003")
	svc, provider, profiles, _ := newLoginService(newFakeMemberStore(member))

	_, err := svc.Login(context.Background(), "TM10003", "TM10003", "")
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), "TM10003", "TM10003", "")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.signUpCalls)
	assert.Equal(t, 1, profiles.createCalls, "profile ensure is idempotent")
}

func TestLoginAlreadyRegisteredBootstrapIsNotAnError(t *testing.T) {
	// The account exists but the member changed the password: typing the
	// member number again triggers the bootstrap branch, SignUp reports the
	// existing account and the retry still fails as plain bad credentials.
	member := testMember("TM10003")
	svc, provider, _, audit := newLoginService(newFakeMemberStore(member))
	id := provider.addAccount(PlaceholderEmail("TM10003"), "chosen-password")
	member.AuthUserID = &id

	_, err := svc.Login(context.Background(), "TM10003", "TM10003", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, provider.signUpCalls)
	assert.Contains(t, audit.operations(), "account_bootstrap")
	assert.Contains(t, audit.operations(), "login_failed")
	assert.Equal(t, 1, member.FailedLoginCount)
}

func TestLoginBootstrapsWithWrappedProviderErrors(t *testing.T) {
	// A provider may wrap the sentinels; the bootstrap branch must still
	// recognize them through errors.Is.
	member := testMember("TM10003")
	svc, provider, _, audit := newLoginService(newFakeMemberStore(member))
	provider.wrapErrors = true

	res, err := svc.Login(context.Background(), "TM10003", "TM10003", "")
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, 1, provider.signUpCalls)
	assert.Contains(t, audit.operations(), "account_bootstrap")
}

func TestLoginUnknownMemberLooksLikeBadPassword(t *testing.T) {
	svc, provider, _, audit := newLoginService(newFakeMemberStore())

	_, err := svc.Login(context.Background(), "TM99999", "whatever", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 0, provider.signUpCalls)
	assert.Empty(t, audit.entries)
}

func TestLoginRejectsInvalidNumberBeforeAnyIO(t *testing.T) {
	svc, provider, _, audit := newLoginService(newFakeMemberStore())

	_, err := svc.Login(context.Background(), "not-a-number", "pw", "")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, provider.signUpCalls)
	assert.Empty(t, provider.sessions)
	assert.Empty(t, audit.entries)
}

func TestLoginSuspendedAndDeceasedMembers(t *testing.T) {
	for _, status := range []string{models.MemberStatusSuspended, models.MemberStatusDeceased} {
		member := testMember("TM10003")
		member.Status = status
		svc, _, _, _ := newLoginService(newFakeMemberStore(member))

		_, err := svc.Login(context.Background(), "TM10003", "TM10003", "")
		assert.ErrorIs(t, err, ErrMemberSuspended, status)
	}
}

func TestLoginWrongPasswordCountsAndSuspends(t *testing.T) {
	member := testMember("TM10003")
	member.FailedLoginCount = models.MaxFailedLogins - 2
	store := newFakeMemberStore(member)
	svc, provider, _, audit := newLoginService(store)
	provider.addAccount(PlaceholderEmail("TM10003"), "chosen-password")

	_, err := svc.Login(context.Background(), "TM10003", "wrong-password", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, models.MaxFailedLogins-1, member.FailedLoginCount)
	assert.Equal(t, models.MemberStatusActive, member.Status)
	assert.Contains(t, audit.operations(), "login_failed")

	// One more miss hits the threshold.
	_, err = svc.Login(context.Background(), "TM10003", "wrong-password", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, models.MemberStatusSuspended, member.Status)

	_, err = svc.Login(context.Background(), "TM10003", "chosen-password", "")
	assert.ErrorIs(t, err, ErrMemberSuspended, "even the right password is refused now")
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	member := testMember("TM10003")
	member.FailedLoginCount = 4
	store := newFakeMemberStore(member)
	svc, _, _, _ := newLoginService(store)

	_, err := svc.Login(context.Background(), "TM10003", "TM10003", "")
	require.NoError(t, err)
	assert.Equal(t, 0, member.FailedLoginCount)
	assert.Equal(t, 1, store.resetFailedCall)
}

func TestLoginClearsPriorSession(t *testing.T) {
	member := testMember("TM10003")
	svc, provider, _, _ := newLoginService(newFakeMemberStore(member))

	_, err := svc.Login(context.Background(), "TM10003", "TM10003", "stale-token")
	require.NoError(t, err)
	assert.Contains(t, provider.signedOut, "stale-token")
}

func TestLoginRequiresDurableSession(t *testing.T) {
	member := testMember("TM10003")
	svc, provider, _, _ := newLoginService(newFakeMemberStore(member))
	provider.dropSessions = true

	_, err := svc.Login(context.Background(), "TM10003", "TM10003", "")
	assert.ErrorIs(t, err, ErrSessionNotEstablished)
}

func TestLoginDoesNotRelinkLinkedMember(t *testing.T) {
	member := testMember("TM10003")
	store := newFakeMemberStore(member)
	svc, provider, profiles, _ := newLoginService(store)

	id := provider.addAccount(PlaceholderEmail("TM10003"), "TM10003")
	member.AuthUserID = &id
	profiles.profiles[id] = &models.Profile{ID: id}

	res, err := svc.Login(context.Background(), "TM10003", "TM10003", "")
	require.NoError(t, err)
	assert.Equal(t, 0, store.setAuthCalls)
	assert.Equal(t, 0, profiles.createCalls)
	assert.Equal(t, id, *res.Member.AuthUserID)
}

func TestLoginUsesVerifiedPersonalEmail(t *testing.T) {
	member := testMember("TM10003")
	member.Email = "jane@example.com"
	member.EmailVerified = true
	svc, provider, _, _ := newLoginService(newFakeMemberStore(member))
	id := provider.addAccount("jane@example.com", "chosen-password")
	member.AuthUserID = &id

	res, err := svc.Login(context.Background(), "TM10003", "chosen-password", "")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", res.Session.Email)
}

func TestChangePasswordValidation(t *testing.T) {
	member := testMember("TM10003")
	svc, provider, _, _ := newLoginService(newFakeMemberStore(member))
	provider.addAccount(PlaceholderEmail("TM10003"), "TM10003")
	sess, err := provider.SignInWithPassword(context.Background(), PlaceholderEmail("TM10003"), "TM10003")
	require.NoError(t, err)

	_, err = svc.ChangePassword(context.Background(), sess, member, "short")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.ChangePassword(context.Background(), sess, member, "TM10003")
	require.ErrorAs(t, err, &verr, "member number is not a password")
}

func TestChangePasswordFlipsFlagsAndReissuesSession(t *testing.T) {
	member := testMember("TM10003")
	svc, provider, _, audit := newLoginService(newFakeMemberStore(member))
	id := provider.addAccount(PlaceholderEmail("TM10003"), "TM10003")
	member.AuthUserID = &id
	sess, err := provider.SignInWithPassword(context.Background(), PlaceholderEmail("TM10003"), "TM10003")
	require.NoError(t, err)

	fresh, err := svc.ChangePassword(context.Background(), sess, member, "a-much-better-one")
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.NotEqual(t, sess.Token, fresh.Token)

	// Old sessions died with the old password.
	assert.Contains(t, provider.signedOutAll, id)
	gone, _ := provider.GetSession(context.Background(), sess.Token)
	assert.Nil(t, gone)

	assert.True(t, member.PasswordChanged)
	assert.False(t, member.FirstTimeLogin)
	assert.Equal(t, StatePendingProfile, StateFromFlags(member.CompletionFlags))
	assert.Contains(t, audit.operations(), "password_changed")

	// The new password is live.
	_, err = provider.SignInWithPassword(context.Background(), PlaceholderEmail("TM10003"), "a-much-better-one")
	assert.NoError(t, err)
}
