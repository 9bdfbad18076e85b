package chat_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	chat "github.com/hallwaychat/go-chat"
)

// stubIdentity implements chat.Identity with fixed values.
type stubIdentity struct {
	id          string
	email       string
	displayName string
	photoURL    string
	verified    bool
}

func (s stubIdentity) ID() string          { return s.id }
func (s stubIdentity) Email() string       { return s.email }
func (s stubIdentity) DisplayName() string { return s.displayName }
func (s stubIdentity) PhotoURL() string    { return s.photoURL }
func (s stubIdentity) EmailVerified() bool { return s.verified }

type fakeSubscription struct {
	cancelled bool
}

func (f *fakeSubscription) Cancel() { f.cancelled = true }

// MockAuthClient implements chat.AuthClient. OnStateChange is not mocked:
// it captures the handler so tests can drive the identity stream through
// EmitState.
type MockAuthClient struct {
	mock.Mock

	mu      sync.Mutex
	handler func(chat.Identity)
	sub     *fakeSubscription
}

func (m *MockAuthClient) SignIn(ctx context.Context, email, password string) (chat.Identity, error) {
	args := m.Called(ctx, email, password)
	identity, _ := args.Get(0).(chat.Identity)
	return identity, args.Error(1)
}

func (m *MockAuthClient) SignUp(ctx context.Context, email, password string) (chat.Identity, error) {
	args := m.Called(ctx, email, password)
	identity, _ := args.Get(0).(chat.Identity)
	return identity, args.Error(1)
}

func (m *MockAuthClient) SignInWithGoogle(ctx context.Context) (chat.Identity, error) {
	args := m.Called(ctx)
	identity, _ := args.Get(0).(chat.Identity)
	return identity, args.Error(1)
}

func (m *MockAuthClient) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAuthClient) CurrentIdentity() chat.Identity {
	args := m.Called()
	identity, _ := args.Get(0).(chat.Identity)
	return identity
}

func (m *MockAuthClient) Reload(ctx context.Context) (chat.Identity, error) {
	args := m.Called(ctx)
	identity, _ := args.Get(0).(chat.Identity)
	return identity, args.Error(1)
}

func (m *MockAuthClient) UpdateDisplayName(ctx context.Context, displayName string) error {
	args := m.Called(ctx, displayName)
	return args.Error(0)
}

func (m *MockAuthClient) SendPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockAuthClient) SendEmailVerification(ctx context.Context, continueURL string) error {
	args := m.Called(ctx, continueURL)
	return args.Error(0)
}

func (m *MockAuthClient) OnStateChange(fn func(chat.Identity)) chat.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handler = fn
	m.sub = &fakeSubscription{}
	return m.sub
}

// HasHandler reports whether OnStateChange has captured an observer.
func (m *MockAuthClient) HasHandler() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handler != nil
}

// EmitState pushes an identity (or nil) through the captured handler, the
// way the vendor stream would.
func (m *MockAuthClient) EmitState(identity chat.Identity) {
	m.mu.Lock()
	fn := m.handler
	m.mu.Unlock()

	if fn != nil {
		fn(identity)
	}
}

// MockProfileStore implements chat.ProfileStore.
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) Get(ctx context.Context, id string) (*chat.Profile, error) {
	args := m.Called(ctx, id)
	profile, _ := args.Get(0).(*chat.Profile)
	return profile, args.Error(1)
}

func (m *MockProfileStore) Create(ctx context.Context, profile *chat.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileStore) Merge(ctx context.Context, id string, patch chat.ProfilePatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

// recordingSink collects activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []chat.ActivityEvent
}

func (r *recordingSink) Record(ctx context.Context, event chat.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) Types() []chat.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]chat.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.EventType)
	}
	return types
}
