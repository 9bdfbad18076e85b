// Package local is a self-contained auth provider for development and
// tests. Accounts live in memory, passwords are bcrypt-hashed, and
// verification and reset links carry short-lived signed tokens delivered
// through a pluggable Mailer. Errors carry the same vendor codes a hosted
// provider would surface, so the session store and classifier behave
// identically against it.
package local

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	chat "github.com/hallwaychat/go-chat"
)

const minPasswordLength = 6

const (
	purposeVerifyEmail   = "verify_email"
	purposePasswordReset = "password_reset"
)

type account struct {
	id           string
	email        string
	passwordHash string
	displayName  string
	photoURL     string
	verified     bool
}

type identity struct {
	id          string
	email       string
	displayName string
	photoURL    string
	verified    bool
}

func (i identity) ID() string          { return i.id }
func (i identity) Email() string       { return i.email }
func (i identity) DisplayName() string { return i.displayName }
func (i identity) PhotoURL() string    { return i.photoURL }
func (i identity) EmailVerified() bool { return i.verified }

func (a *account) identity() identity {
	return identity{
		id:          a.id,
		email:       a.email,
		displayName: a.displayName,
		photoURL:    a.photoURL,
		verified:    a.verified,
	}
}

// GoogleAccount is the fixed identity SignInWithGoogle resolves to.
type GoogleAccount struct {
	Email       string
	DisplayName string
	PhotoURL    string
}

// Client implements chat.AuthClient against an in-memory account table.
type Client struct {
	mu          sync.RWMutex
	accounts    map[string]*account
	current     *identity
	subscribers map[string]func(chat.Identity)

	google   *GoogleAccount
	mailer   Mailer
	logger   chat.Logger
	now      func() time.Time
	signKey  []byte
	tokenTTL time.Duration
}

var _ chat.AuthClient = (*Client)(nil)

// Option customizes the client.
type Option func(*Client)

// WithLogger overrides the default logger.
func WithLogger(logger chat.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMailer sets the delivery channel for verification and reset links.
func WithMailer(m Mailer) Option {
	return func(c *Client) {
		if m != nil {
			c.mailer = m
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithSigningKey sets the key used to sign verification and reset tokens.
func WithSigningKey(key []byte) Option {
	return func(c *Client) {
		if len(key) > 0 {
			c.signKey = key
		}
	}
}

// WithTokenTTL sets the lifetime of verification and reset tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.tokenTTL = ttl
		}
	}
}

// WithGoogleAccount configures the identity the Google flow signs in as.
// Without it, SignInWithGoogle fails the way a blocked popup would.
func WithGoogleAccount(ga GoogleAccount) Option {
	return func(c *Client) { c.google = &ga }
}

// NewClient returns a client with no accounts and nobody signed in.
func NewClient(opts ...Option) *Client {
	c := &Client{
		accounts:    map[string]*account{},
		subscribers: map[string]func(chat.Identity){},
		logger:      chat.DefaultLogger(),
		now:         time.Now,
		signKey:     []byte(uuid.NewString()),
		tokenTTL:    time.Hour,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.mailer == nil {
		c.mailer = NewLogMailer(c.logger)
	}

	return c
}

// SignIn implements chat.AuthClient.
func (c *Client) SignIn(ctx context.Context, email, password string) (chat.Identity, error) {
	email = normalizeEmail(email)

	c.mu.Lock()
	acct, ok := c.accounts[email]
	if !ok {
		c.mu.Unlock()
		return nil, vendorError(chat.CodeUserNotFound, "no account for email")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.passwordHash), []byte(password)); err != nil {
		c.mu.Unlock()
		return nil, vendorError(chat.CodeWrongPassword, "password mismatch")
	}

	id := acct.identity()
	c.current = &id
	c.mu.Unlock()

	c.notify(id)
	return id, nil
}

// SignUp implements chat.AuthClient. The new identity is signed in but not
// email-verified.
func (c *Client) SignUp(ctx context.Context, email, password string) (chat.Identity, error) {
	email = normalizeEmail(email)

	if !strings.Contains(email, "@") {
		return nil, vendorError(chat.CodeInvalidEmail, "malformed email address")
	}
	if len(password) < minPasswordLength {
		return nil, vendorError(chat.CodeWeakPassword, "password below minimum length")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	c.mu.Lock()
	if _, exists := c.accounts[email]; exists {
		c.mu.Unlock()
		return nil, vendorError(chat.CodeEmailInUse, "email already registered")
	}

	acct := &account{
		id:           accountID(email),
		email:        email,
		passwordHash: string(hash),
	}
	c.accounts[email] = acct

	id := acct.identity()
	c.current = &id
	c.mu.Unlock()

	c.notify(id)
	return id, nil
}

// SignInWithGoogle implements chat.AuthClient. The account is created on
// first use and always arrives email-verified.
func (c *Client) SignInWithGoogle(ctx context.Context) (chat.Identity, error) {
	c.mu.Lock()
	if c.google == nil {
		c.mu.Unlock()
		return nil, vendorError(chat.CodePopupBlocked, "no google identity configured")
	}

	email := normalizeEmail(c.google.Email)
	acct, ok := c.accounts[email]
	if !ok {
		acct = &account{
			id:    accountID(email),
			email: email,
		}
		c.accounts[email] = acct
	}
	acct.displayName = c.google.DisplayName
	acct.photoURL = c.google.PhotoURL
	acct.verified = true

	id := acct.identity()
	c.current = &id
	c.mu.Unlock()

	c.notify(id)
	return id, nil
}

// SignOut implements chat.AuthClient.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()

	c.notify(nil)
	return nil
}

// CurrentIdentity implements chat.AuthClient.
func (c *Client) CurrentIdentity() chat.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return nil
	}
	id := *c.current
	return id
}

// Reload implements chat.AuthClient: it re-reads the signed-in account so
// flags flipped out of band (verification) become visible.
func (c *Client) Reload(ctx context.Context) (chat.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil, chat.ErrNoActiveSession
	}

	acct, ok := c.accounts[c.current.email]
	if !ok {
		return nil, vendorError(chat.CodeUserNotFound, "account removed")
	}

	id := acct.identity()
	c.current = &id
	return id, nil
}

// UpdateDisplayName implements chat.AuthClient. Profile edits do not fire
// state-change observers.
func (c *Client) UpdateDisplayName(ctx context.Context, displayName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return chat.ErrNoActiveSession
	}

	acct, ok := c.accounts[c.current.email]
	if !ok {
		return vendorError(chat.CodeUserNotFound, "account removed")
	}

	acct.displayName = displayName
	id := acct.identity()
	c.current = &id
	return nil
}

// SendPasswordReset implements chat.AuthClient.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	c.mu.RLock()
	acct, ok := c.accounts[email]
	c.mu.RUnlock()
	if !ok {
		return vendorError(chat.CodeUserNotFound, "no account for email")
	}

	token, err := c.mintToken(acct.id, purposePasswordReset)
	if err != nil {
		return err
	}

	return c.mailer.SendPasswordReset(ctx, email, token)
}

// SendEmailVerification implements chat.AuthClient.
func (c *Client) SendEmailVerification(ctx context.Context, continueURL string) error {
	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()

	if current == nil {
		return chat.ErrNoActiveSession
	}

	token, err := c.mintToken(current.id, purposeVerifyEmail)
	if err != nil {
		return err
	}

	return c.mailer.SendVerification(ctx, current.email, token, continueURL)
}

// ConfirmVerification consumes a token minted by SendEmailVerification and
// marks the account's email verified. A signed-in identity does not pick up
// the flag until Reload.
func (c *Client) ConfirmVerification(ctx context.Context, token string) error {
	accountID, err := c.validateToken(token, purposeVerifyEmail)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	acct := c.accountByID(accountID)
	if acct == nil {
		return vendorError(chat.CodeUserNotFound, "account removed")
	}

	acct.verified = true
	return nil
}

// ConfirmPasswordReset consumes a token minted by SendPasswordReset and
// replaces the account's password.
func (c *Client) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return vendorError(chat.CodeWeakPassword, "password below minimum length")
	}

	accountID, err := c.validateToken(token, purposePasswordReset)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	acct := c.accountByID(accountID)
	if acct == nil {
		return vendorError(chat.CodeUserNotFound, "account removed")
	}

	acct.passwordHash = string(hash)
	return nil
}

type subscription struct {
	cancel func()
	once   sync.Once
}

func (s *subscription) Cancel() {
	s.once.Do(s.cancel)
}

// OnStateChange implements chat.AuthClient. The observer fires once with
// the current state right after registration, asynchronously.
func (c *Client) OnStateChange(fn func(chat.Identity)) chat.Subscription {
	key := uuid.NewString()

	c.mu.Lock()
	c.subscribers[key] = fn
	current := c.current
	c.mu.Unlock()

	go func() {
		if current == nil {
			fn(nil)
			return
		}
		fn(*current)
	}()

	return &subscription{cancel: func() {
		c.mu.Lock()
		delete(c.subscribers, key)
		c.mu.Unlock()
	}}
}

// notify fans an identity change out to subscribers. Delivery is async so a
// subscriber can call back into the client without deadlocking.
func (c *Client) notify(id chat.Identity) {
	c.mu.RLock()
	fns := make([]func(chat.Identity), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		go fn(id)
	}
}

func (c *Client) mintToken(accountID, purpose string) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		Audience:  jwt.ClaimStrings{purpose},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.signKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

func (c *Client) validateToken(tokenString, purpose string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method", errors.CategoryAuth)
		}
		return c.signKey, nil
	}, jwt.WithAudience(purpose), jwt.WithTimeFunc(c.now))

	if err != nil {
		return "", errors.Wrap(err, errors.CategoryAuth, "invalid or expired token").
			WithCode(errors.CodeUnauthorized)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("token carries no subject", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	return claims.Subject, nil
}

func (c *Client) accountByID(id string) *account {
	for _, acct := range c.accounts {
		if acct.id == id {
			return acct
		}
	}
	return nil
}

// accountID derives a stable uuid from the email so re-registering a
// deleted dev account keeps its profile.
func accountID(email string) string {
	if id, err := hashid.NewUUID(email); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func vendorError(code, msg string) error {
	return errors.New(msg, errors.CategoryAuth).
		WithTextCode(code).
		WithCode(errors.CodeUnauthorized)
}
