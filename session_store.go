package chat

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// DefaultVerificationURL is the continue link embedded in verification
// mails when no override is configured.
const DefaultVerificationURL = "/auth/verify-email"

// SessionStore owns the authentication session lifecycle: it mirrors the
// vendor's identity stream into local state, merges the parallel profile
// record on every sign-in, and exposes the predicates the route guard
// reads.
//
// The identity and profile fetches behind each merge are sequential, not
// transactional: a concurrent profile write can land between them and the
// merge keeps whichever version the fetch saw (last write wins).
type SessionStore struct {
	client    AuthClient
	profiles  ProfileStore
	logger    Logger
	sink      ActivitySink
	now       func() time.Time
	verifyURL string

	mu           sync.RWMutex
	lifecycle    *SessionLifecycle
	session      *Session
	lastErr      error
	lastActivity *time.Time

	initOnce  sync.Once
	readyOnce sync.Once
	ready     chan struct{}
	sub       Subscription
}

// SessionStoreOption customizes store construction.
type SessionStoreOption func(*SessionStore)

// WithLogger overrides the default logger.
func WithLogger(logger Logger) SessionStoreOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithActivitySink configures an ActivitySink for session events.
func WithActivitySink(sink ActivitySink) SessionStoreOption {
	return func(s *SessionStore) {
		s.sink = normalizeActivitySink(sink)
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) SessionStoreOption {
	return func(s *SessionStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithVerificationURL sets the continue link sent in verification mails.
func WithVerificationURL(u string) SessionStoreOption {
	return func(s *SessionStore) {
		if u != "" {
			s.verifyURL = u
		}
	}
}

// NewSessionStore returns a store bound to the given auth client and
// profile store. Call Init before the first navigation.
func NewSessionStore(client AuthClient, profiles ProfileStore, opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{
		client:    client,
		profiles:  profiles,
		logger:    defLogger{},
		sink:      noopActivitySink{},
		now:       time.Now,
		verifyURL: DefaultVerificationURL,
		lifecycle: NewSessionLifecycle(),
		ready:     make(chan struct{}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Init subscribes once (process-wide for this store) to the vendor's
// identity-change stream and blocks until its first emission has been
// folded into local state. Stream errors never fail Init; they are
// captured into the error field. Returns early only if ctx is cancelled.
func (s *SessionStore) Init(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.mu.Lock()
		if err := s.lifecycle.Transition(SessionStateLoading); err != nil {
			s.logger.Warn("session lifecycle: %s", err)
		}
		s.mu.Unlock()

		s.sub = s.client.OnStateChange(s.handleAuthState)
	})

	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CategoryOperation, "cancelled waiting for first auth state emission")
	}
}

// Close cancels the identity-stream subscription. The store keeps its last
// known state; it is safe to call multiple times.
func (s *SessionStore) Close() {
	if s.sub != nil {
		s.sub.Cancel()
	}
}

func (s *SessionStore) handleAuthState(identity Identity) {
	ctx := context.Background()

	if identity == nil {
		s.clearSession()
	} else if err := s.adoptIdentity(ctx, identity); err != nil {
		s.recordError(Classify(err))
		s.logger.Error("auth state sync failed: %s", err)
	}

	s.readyOnce.Do(func() { close(s.ready) })
}

// adoptIdentity fetches the profile record for an identity reported by the
// stream and merges the pair into the session. On fetch failure the session
// is left untouched so identity and profile never go out of step.
func (s *SessionStore) adoptIdentity(ctx context.Context, identity Identity) error {
	profile, err := s.profiles.Get(ctx, identity.ID())
	if err != nil {
		return err
	}

	s.setSession(identity, profile)
	return nil
}

// Login signs in with email and password. An identity whose email is not
// verified is immediately signed back out and the call fails with the
// unverified-email error; the session stays cleared.
func (s *SessionStore) Login(ctx context.Context, email, password string) error {
	s.clearError()

	creds := Credentials{Email: email, Password: password}
	if err := creds.Validate(); err != nil {
		return s.fail(ctx, ActivityEventLoginFailure, "", invalidPayload(err), map[string]any{"email": email})
	}

	identity, err := s.client.SignIn(ctx, email, password)
	if err != nil {
		return s.fail(ctx, ActivityEventLoginFailure, "", err, map[string]any{"email": email})
	}

	if !identity.EmailVerified() {
		if err := s.client.SignOut(ctx); err != nil {
			s.logger.Warn("sign-out after unverified login failed: %s", err)
		}
		s.clearSession()
		return s.fail(ctx, ActivityEventLoginFailure, identity.ID(), ErrUnverifiedEmail, map[string]any{"email": email})
	}

	profile, err := s.profiles.Get(ctx, identity.ID())
	if err != nil {
		return s.fail(ctx, ActivityEventLoginFailure, identity.ID(), err, map[string]any{"email": email})
	}

	s.setSession(identity, profile)

	// Last-login write is fire-and-forget relative to returning.
	lastLogin := s.now()
	go func() {
		patch := ProfilePatch{LastLogin: &lastLogin}
		if err := s.profiles.Merge(context.WithoutCancel(ctx), identity.ID(), patch); err != nil {
			s.logger.Warn("last-login write failed: %s", err)
		}
	}()

	s.emit(ctx, ActivityEventLoginSuccess, identity.ID(), map[string]any{"email": email})
	return nil
}

// Register creates a vendor identity, sets its display name, writes the
// default profile record, and requests a verification mail. If the profile
// write fails after the identity was created the two stores are left
// inconsistent; there is no compensating delete.
func (s *SessionStore) Register(ctx context.Context, email, password, displayName string) error {
	s.clearError()

	payload := Registration{Email: email, Password: password, DisplayName: displayName}
	if err := payload.Validate(); err != nil {
		return s.fail(ctx, ActivityEventRegisterFailure, "", invalidPayload(err), map[string]any{"email": email})
	}

	identity, err := s.client.SignUp(ctx, email, password)
	if err != nil {
		return s.fail(ctx, ActivityEventRegisterFailure, "", err, map[string]any{"email": email})
	}

	if err := s.client.UpdateDisplayName(ctx, displayName); err != nil {
		return s.fail(ctx, ActivityEventRegisterFailure, identity.ID(), err, map[string]any{"email": email})
	}

	now := s.now()
	profile := NewProfile(identity)
	profile.Email = email
	profile.DisplayName = displayName
	profile.EmailVerified = false
	profile.CreatedAt = &now
	profile.LastLogin = &now

	if err := s.profiles.Create(ctx, profile); err != nil {
		return s.fail(ctx, ActivityEventRegisterFailure, identity.ID(), err, map[string]any{"email": email})
	}

	if err := s.client.SendEmailVerification(ctx, s.verificationLink(email)); err != nil {
		return s.fail(ctx, ActivityEventRegisterFailure, identity.ID(), err, map[string]any{"email": email})
	}

	s.setSession(identity, profile)
	s.emit(ctx, ActivityEventRegisterSuccess, identity.ID(), map[string]any{"email": email})
	return nil
}

// LoginWithGoogle runs the vendor's federated sign-in. A first-time
// identity gets a fresh profile record tagged provider=google, trusting the
// vendor's verified flag; a returning identity gets a merge-write updating
// photo, display name, and verified flag while preserving other fields.
func (s *SessionStore) LoginWithGoogle(ctx context.Context) error {
	s.clearError()

	identity, err := s.client.SignInWithGoogle(ctx)
	if err != nil {
		return s.fail(ctx, ActivityEventLoginFailure, "", err, map[string]any{"provider": "google"})
	}

	now := s.now()
	isNew := false

	profile, err := s.profiles.Get(ctx, identity.ID())
	switch {
	case err == nil:
		patch := ProfilePatch{
			LastLogin:     &now,
			EmailVerified: boolPtr(identity.EmailVerified()),
		}
		if photo := identity.PhotoURL(); photo != "" {
			patch.PhotoURL = &photo
		}
		if name := identity.DisplayName(); name != "" {
			patch.DisplayName = &name
		}

		if err := s.profiles.Merge(ctx, identity.ID(), patch); err != nil {
			return s.fail(ctx, ActivityEventLoginFailure, identity.ID(), err, map[string]any{"provider": "google"})
		}
		profile.Apply(patch)

	case errors.IsNotFound(err):
		isNew = true
		profile = NewProfile(identity)
		profile.Provider = "google"
		profile.CreatedAt = &now
		profile.LastLogin = &now

		if err := s.profiles.Create(ctx, profile); err != nil {
			return s.fail(ctx, ActivityEventLoginFailure, identity.ID(), err, map[string]any{"provider": "google"})
		}

	default:
		return s.fail(ctx, ActivityEventLoginFailure, identity.ID(), err, map[string]any{"provider": "google"})
	}

	s.setSession(identity, profile)
	s.emit(ctx, ActivityEventGoogleLogin, identity.ID(), map[string]any{"is_new_user": isNew})
	return nil
}

// Logout best-effort writes a last-activity timestamp, signs out of the
// vendor, and clears the local session unconditionally. A failed
// last-activity write is recorded but does not stop the sign-out.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.clearError()

	sess := s.Session()
	if sess != nil {
		now := s.now()
		if err := s.profiles.Merge(ctx, sess.UserID(), ProfilePatch{LastActivity: &now}); err != nil {
			s.recordError(Classify(err))
			s.logger.Warn("last-activity write failed during logout: %s", err)
		}
	}

	err := s.client.SignOut(ctx)
	s.clearSession()

	if err != nil {
		return s.fail(ctx, ActivityEventLogout, sess.UserID(), err, nil)
	}

	s.emit(ctx, ActivityEventLogout, sess.UserID(), nil)
	return nil
}

// ResetPassword requests a vendor password-reset mail.
func (s *SessionStore) ResetPassword(ctx context.Context, email string) error {
	s.clearError()

	payload := PasswordResetRequest{Email: email}
	if err := payload.Validate(); err != nil {
		return s.fail(ctx, ActivityEventPasswordResetRequest, "", invalidPayload(err), map[string]any{"email": email})
	}

	if err := s.client.SendPasswordReset(ctx, email); err != nil {
		return s.fail(ctx, ActivityEventPasswordResetRequest, "", err, map[string]any{"email": email})
	}

	s.emit(ctx, ActivityEventPasswordResetRequest, "", map[string]any{"email": email})
	return nil
}

// SendEmailVerification requests a verification mail for the signed-in
// identity.
func (s *SessionStore) SendEmailVerification(ctx context.Context) error {
	s.clearError()

	identity := s.client.CurrentIdentity()
	if identity == nil {
		return s.fail(ctx, ActivityEventVerificationRequested, "", ErrNoActiveSession, nil)
	}

	if identity.EmailVerified() {
		return s.fail(ctx, ActivityEventVerificationRequested, identity.ID(), ErrAlreadyVerified, nil)
	}

	if err := s.client.SendEmailVerification(ctx, s.verificationLink(identity.Email())); err != nil {
		return s.fail(ctx, ActivityEventVerificationRequested, identity.ID(), err, nil)
	}

	s.emit(ctx, ActivityEventVerificationRequested, identity.ID(), nil)
	return nil
}

// CheckEmailVerification forces a refresh of the vendor identity and, if
// the email is now verified, persists the flag to the profile record and
// local state. It never propagates failures to the caller: any internal
// error lands in the error field and the result is false.
func (s *SessionStore) CheckEmailVerification(ctx context.Context) bool {
	s.clearError()

	if s.client.CurrentIdentity() == nil {
		s.recordError(ErrNoActiveSession)
		return false
	}

	identity, err := s.client.Reload(ctx)
	if err != nil {
		s.recordError(Classify(err))
		s.logger.Error("identity reload failed during verification check: %s", err)
		return false
	}

	if identity == nil || !identity.EmailVerified() {
		return false
	}

	verified := true
	if err := s.profiles.Merge(ctx, identity.ID(), ProfilePatch{EmailVerified: &verified}); err != nil {
		s.recordError(Classify(err))
		s.logger.Error("verified flag write failed: %s", err)
		return false
	}

	s.mu.Lock()
	if s.session != nil {
		s.session.Identity = identity
		if s.session.Profile != nil {
			s.session.Profile.EmailVerified = true
		}
	}
	s.mu.Unlock()

	s.emit(ctx, ActivityEventVerificationConfirmed, identity.ID(), nil)
	return true
}

// Session returns the current identity+profile merge, nil when anonymous.
func (s *SessionStore) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// IsAuthenticated reports whether a session exists.
func (s *SessionStore) IsAuthenticated() bool {
	return s.Session() != nil
}

// IsEmailVerified reports the merged verification flag, false when
// anonymous.
func (s *SessionStore) IsEmailVerified() bool {
	return s.Session().EmailVerified()
}

// UserID returns the signed-in identity id, empty when anonymous.
func (s *SessionStore) UserID() string {
	return s.Session().UserID()
}

// UserDisplayName returns the merged display name or the anonymous
// fallback.
func (s *SessionStore) UserDisplayName() string {
	return s.Session().DisplayName()
}

// UserPhotoURL returns the merged photo reference, empty when absent.
func (s *SessionStore) UserPhotoURL() string {
	return s.Session().PhotoURL()
}

// State returns the lifecycle state.
func (s *SessionStore) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lifecycle.Current()
}

// Loading reports whether the store is still waiting for the stream's
// first emission.
func (s *SessionStore) Loading() bool {
	state := s.State()
	return state == SessionStateUninitialized || state == SessionStateLoading
}

// Err returns the last recorded action failure, nil after a clean action.
func (s *SessionStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// LastActivity returns the time of the last session-establishing event.
func (s *SessionStore) LastActivity() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

func (s *SessionStore) setSession(identity Identity, profile *Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = &Session{Identity: identity, Profile: profile}
	now := s.now()
	s.lastActivity = &now

	if err := s.lifecycle.Transition(SessionStateAuthenticated); err != nil {
		s.logger.Warn("session lifecycle: %s", err)
	}
}

func (s *SessionStore) clearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	s.lastActivity = nil

	if err := s.lifecycle.Transition(SessionStateAnonymous); err != nil {
		s.logger.Warn("session lifecycle: %s", err)
	}
}

func (s *SessionStore) clearError() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *SessionStore) recordError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// fail classifies an action failure, records it into the error field, logs
// it, emits the matching activity event, and returns the classified error
// for the caller.
func (s *SessionStore) fail(ctx context.Context, event ActivityEventType, userID string, err error, meta map[string]any) error {
	classified := Classify(err)
	s.recordError(classified)

	s.logger.Error("session action failed: %s %s %s",
		event, classified.Message, print.MaybePrettyJSON(classified.Metadata))

	if meta == nil {
		meta = map[string]any{}
	}
	meta["error"] = classified.Message
	s.emit(ctx, event, userID, meta)

	return classified
}

func (s *SessionStore) emit(ctx context.Context, event ActivityEventType, userID string, meta map[string]any) {
	sink := normalizeActivitySink(s.sink)
	if err := sink.Record(ctx, ActivityEvent{
		EventType:  event,
		UserID:     userID,
		Metadata:   meta,
		OccurredAt: s.now(),
	}); err != nil {
		s.logger.Warn("activity sink record error: %s", err)
	}
}

func (s *SessionStore) verificationLink(email string) string {
	return s.verifyURL + "?email=" + url.QueryEscape(email)
}

func invalidPayload(err error) error {
	return errors.Wrap(err, errors.CategoryValidation, err.Error()).
		WithCode(errors.CodeBadRequest)
}

func boolPtr(b bool) *bool {
	return &b
}
