package chat

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess          ActivityEventType = "session.login.success"
	ActivityEventLoginFailure          ActivityEventType = "session.login.failure"
	ActivityEventRegisterSuccess       ActivityEventType = "session.register.success"
	ActivityEventRegisterFailure       ActivityEventType = "session.register.failure"
	ActivityEventGoogleLogin           ActivityEventType = "session.google.login"
	ActivityEventLogout                ActivityEventType = "session.logout"
	ActivityEventPasswordResetRequest  ActivityEventType = "session.password.reset.requested"
	ActivityEventVerificationRequested ActivityEventType = "session.verification.requested"
	ActivityEventVerificationConfirmed ActivityEventType = "session.verification.confirmed"
)

// ActivityEvent captures audit-friendly information about a session action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort; failures are logged, never propagated.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
