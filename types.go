package chat

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes the auth vendor exposes for a signed-in
// principal.
type Identity interface {
	ID() string
	Email() string
	DisplayName() string
	PhotoURL() string
	EmailVerified() bool
}

// Subscription is a cancellable handle to an identity-change stream.
type Subscription interface {
	Cancel()
}

// AuthClient is the vendor auth provider surface the session store depends
// on. Implementations wrap a hosted provider; provider/local ships a
// self-contained one for development and tests.
type AuthClient interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignInWithGoogle(ctx context.Context) (Identity, error)
	SignOut(ctx context.Context) error

	// CurrentIdentity returns the signed-in identity or nil.
	CurrentIdentity() Identity
	// Reload forces a refresh of the current identity from the vendor.
	Reload(ctx context.Context) (Identity, error)

	UpdateDisplayName(ctx context.Context, displayName string) error
	SendPasswordReset(ctx context.Context, email string) error
	SendEmailVerification(ctx context.Context, continueURL string) error

	// OnStateChange registers an observer for identity changes. The
	// observer fires once with the current state after registration and
	// again on every sign-in or sign-out until the subscription is
	// cancelled.
	OnStateChange(fn func(Identity)) Subscription
}

// ProfileStore reads and writes the application-level profile record that
// parallels each vendor identity.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*Profile, error)
	Create(ctx context.Context, profile *Profile) error
	// Merge applies a sparse patch to an existing record, preserving
	// fields the patch does not name.
	Merge(ctx context.Context, id string, patch ProfilePatch) error
}

// ProfilePatch is a sparse merge-write against a profile record. Nil fields
// are left untouched.
type ProfilePatch struct {
	DisplayName   *string
	PhotoURL      *string
	EmailVerified *bool
	LastLogin     *time.Time
	LastActivity  *time.Time
}

// IsZero reports whether the patch names no fields.
func (p ProfilePatch) IsZero() bool {
	return p.DisplayName == nil && p.PhotoURL == nil && p.EmailVerified == nil &&
		p.LastLogin == nil && p.LastActivity == nil
}

// DefaultLogger returns the printf fallback logger used when no logger is
// configured.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CHAT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] CHAT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CHAT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CHAT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
