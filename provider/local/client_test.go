package local_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "github.com/hallwaychat/go-chat"
	"github.com/hallwaychat/go-chat/provider/local"
)

// captureMailer records tokens instead of delivering them.
type captureMailer struct {
	mu                sync.Mutex
	verificationToken string
	resetToken        string
	continueURL       string
}

func (m *captureMailer) SendVerification(ctx context.Context, email, token, continueURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verificationToken = token
	m.continueURL = continueURL
	return nil
}

func (m *captureMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetToken = token
	return nil
}

func vendorCode(t *testing.T, err error) string {
	t.Helper()

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	return richErr.TextCode
}

func TestSignUpAndSignIn(t *testing.T) {
	client := local.NewClient()
	ctx := context.Background()

	identity, err := client.SignUp(ctx, "Kim@Example.com", "hunter22")
	require.NoError(t, err)

	assert.NotEmpty(t, identity.ID())
	assert.Equal(t, "kim@example.com", identity.Email(), "emails are normalized")
	assert.False(t, identity.EmailVerified())
	require.NotNil(t, client.CurrentIdentity())

	require.NoError(t, client.SignOut(ctx))
	assert.Nil(t, client.CurrentIdentity())

	again, err := client.SignIn(ctx, "kim@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, identity.ID(), again.ID(), "account ids are stable across sessions")
}

func TestSignUpRejections(t *testing.T) {
	client := local.NewClient()
	ctx := context.Background()

	_, err := client.SignUp(ctx, "not-an-email", "hunter22")
	require.Error(t, err)
	assert.Equal(t, chat.CodeInvalidEmail, vendorCode(t, err))

	_, err = client.SignUp(ctx, "kim@example.com", "short")
	require.Error(t, err)
	assert.Equal(t, chat.CodeWeakPassword, vendorCode(t, err))

	_, err = client.SignUp(ctx, "kim@example.com", "hunter22")
	require.NoError(t, err)

	_, err = client.SignUp(ctx, "kim@example.com", "hunter22")
	require.Error(t, err)
	assert.Equal(t, chat.CodeEmailInUse, vendorCode(t, err))
}

func TestSignInRejections(t *testing.T) {
	client := local.NewClient()
	ctx := context.Background()

	_, err := client.SignIn(ctx, "ghost@example.com", "whatever")
	require.Error(t, err)
	assert.Equal(t, chat.CodeUserNotFound, vendorCode(t, err))

	_, err = client.SignUp(ctx, "kim@example.com", "hunter22")
	require.NoError(t, err)

	_, err = client.SignIn(ctx, "kim@example.com", "wrong-password")
	require.Error(t, err)
	assert.Equal(t, chat.CodeWrongPassword, vendorCode(t, err))
}

func TestGoogleSignIn(t *testing.T) {
	client := local.NewClient(local.WithGoogleAccount(local.GoogleAccount{
		Email:       "kim@example.com",
		DisplayName: "Kim",
		PhotoURL:    "https://example.com/kim.png",
	}))

	identity, err := client.SignInWithGoogle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Kim", identity.DisplayName())
	assert.True(t, identity.EmailVerified(), "federated identities arrive verified")

	again, err := client.SignInWithGoogle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, identity.ID(), again.ID())
}

func TestGoogleSignInUnconfigured(t *testing.T) {
	client := local.NewClient()

	_, err := client.SignInWithGoogle(context.Background())
	require.Error(t, err)
	assert.Equal(t, chat.CodePopupBlocked, vendorCode(t, err))
}

func TestUpdateDisplayName(t *testing.T) {
	client := local.NewClient()
	ctx := context.Background()

	err := client.UpdateDisplayName(ctx, "Kim")
	require.Error(t, err, "needs a signed-in identity")

	_, err = client.SignUp(ctx, "kim@example.com", "hunter22")
	require.NoError(t, err)

	require.NoError(t, client.UpdateDisplayName(ctx, "Kim"))
	assert.Equal(t, "Kim", client.CurrentIdentity().DisplayName())
}

func TestEmailVerificationFlow(t *testing.T) {
	mailer := &captureMailer{}
	client := local.NewClient(local.WithMailer(mailer))
	ctx := context.Background()

	_, err := client.SignUp(ctx, "kim@example.com", "hunter22")
	require.NoError(t, err)

	require.NoError(t, client.SendEmailVerification(ctx, "/auth/verify-email?email=kim%40example.com"))
	require.NotEmpty(t, mailer.verificationToken)
	assert.Equal(t, "/auth/verify-email?email=kim%40example.com", mailer.continueURL)

	// The signed-in snapshot does not pick the flag up until Reload.
	require.NoError(t, client.ConfirmVerification(ctx, mailer.verificationToken))
	assert.False(t, client.CurrentIdentity().EmailVerified())

	identity, err := client.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, identity.EmailVerified())
	assert.True(t, client.CurrentIdentity().EmailVerified())
}

func TestConfirmVerificationRejectsGarbageToken(t *testing.T) {
	client := local.NewClient()

	err := client.ConfirmVerification(context.Background(), "not-a-token")
	require.Error(t, err)
}

func TestVerificationTokenExpires(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	mailer := &captureMailer{}
	client := local.NewClient(
		local.WithMailer(mailer),
		local.WithClock(func() time.Time { return now }),
		local.WithTokenTTL(time.Minute),
	)
	ctx := context.Background()

	_, err := client.SignUp(ctx, "kim@example.com", "hunter22")
	require.NoError(t, err)
	require.NoError(t, client.SendEmailVerification(ctx, "/verify"))

	now = now.Add(2 * time.Minute)
	err = client.ConfirmVerification(ctx, mailer.verificationToken)
	require.Error(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	mailer := &captureMailer{}
	client := local.NewClient(local.WithMailer(mailer))
	ctx := context.Background()

	err := client.SendPasswordReset(ctx, "ghost@example.com")
	require.Error(t, err)
	assert.Equal(t, chat.CodeUserNotFound, vendorCode(t, err))

	_, err = client.SignUp(ctx, "kim@example.com", "hunter22")
	require.NoError(t, err)
	require.NoError(t, client.SignOut(ctx))

	require.NoError(t, client.SendPasswordReset(ctx, "kim@example.com"))
	require.NotEmpty(t, mailer.resetToken)

	err = client.ConfirmPasswordReset(ctx, mailer.resetToken, "short")
	require.Error(t, err)
	assert.Equal(t, chat.CodeWeakPassword, vendorCode(t, err))

	require.NoError(t, client.ConfirmPasswordReset(ctx, mailer.resetToken, "new-password"))

	_, err = client.SignIn(ctx, "kim@example.com", "hunter22")
	require.Error(t, err, "old password no longer works")

	_, err = client.SignIn(ctx, "kim@example.com", "new-password")
	require.NoError(t, err)
}

func TestOnStateChangeEmitsCurrentStateOnSubscribe(t *testing.T) {
	client := local.NewClient()
	ctx := context.Background()

	states := make(chan chat.Identity, 8)
	sub := client.OnStateChange(func(id chat.Identity) { states <- id })
	defer sub.Cancel()

	select {
	case id := <-states:
		assert.Nil(t, id, "first emission reflects the signed-out state")
	case <-time.After(time.Second):
		t.Fatal("subscriber never saw the initial state")
	}

	_, err := client.SignUp(ctx, "kim@example.com", "hunter22")
	require.NoError(t, err)

	select {
	case id := <-states:
		require.NotNil(t, id)
		assert.Equal(t, "kim@example.com", id.Email())
	case <-time.After(time.Second):
		t.Fatal("subscriber never saw the sign-in")
	}

	require.NoError(t, client.SignOut(ctx))

	select {
	case id := <-states:
		assert.Nil(t, id)
	case <-time.After(time.Second):
		t.Fatal("subscriber never saw the sign-out")
	}
}

func TestOnStateChangeCancel(t *testing.T) {
	client := local.NewClient()
	ctx := context.Background()

	var mu sync.Mutex
	count := 0
	sub := client.OnStateChange(func(chat.Identity) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, time.Millisecond)

	sub.Cancel()
	sub.Cancel()

	_, err := client.SignUp(ctx, "kim@example.com", "hunter22")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count, "cancelled subscribers see no further emissions")
}

func TestWorksAsSessionStoreBackend(t *testing.T) {
	// End to end against the real session store with an in-memory profile
	// backing, the way a development build wires things.
	client := local.NewClient()

	profiles := &memoryProfiles{records: map[string]*chat.Profile{}}
	store := chat.NewSessionStore(client, profiles)

	ctx := context.Background()
	require.NoError(t, store.Init(ctx))
	assert.False(t, store.Loading())
	assert.False(t, store.IsAuthenticated())

	require.NoError(t, store.Register(ctx, "kim@example.com", "hunter22", "Kim"))
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, "Kim", store.UserDisplayName())
	assert.False(t, store.IsEmailVerified())

	require.NoError(t, store.Logout(ctx))
	assert.False(t, store.IsAuthenticated())

	// Password login is refused until the email is verified.
	err := store.Login(ctx, "kim@example.com", "hunter22")
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, chat.TextCodeUnverifiedEmail, richErr.TextCode)

	store.Close()
}

// memoryProfiles is a minimal chat.ProfileStore for the end-to-end test.
type memoryProfiles struct {
	mu      sync.Mutex
	records map[string]*chat.Profile
}

func (m *memoryProfiles) Get(ctx context.Context, id string) (*chat.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.records[id]
	if !ok {
		return nil, chat.ErrProfileNotFound
	}
	return p, nil
}

func (m *memoryProfiles) Create(ctx context.Context, profile *chat.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[profile.ID] = profile
	return nil
}

func (m *memoryProfiles) Merge(ctx context.Context, id string, patch chat.ProfilePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.records[id]
	if !ok {
		return chat.ErrProfileNotFound
	}
	p.Apply(patch)
	return nil
}
