package chat

import (
	"github.com/goliatone/go-errors"
)

// SessionState is the session lifecycle state.
type SessionState string

const (
	// SessionStateUninitialized is the state before Init subscribes to
	// the vendor identity stream.
	SessionStateUninitialized SessionState = "uninitialized"
	// SessionStateLoading covers the window between subscribing and the
	// stream's first emission. It is only entered at boot.
	SessionStateLoading SessionState = "loading"
	// SessionStateAuthenticated means identity and profile are merged
	// and available.
	SessionStateAuthenticated SessionState = "authenticated"
	// SessionStateAnonymous means no identity is signed in.
	SessionStateAnonymous SessionState = "anonymous"
)

const textCodeInvalidTransition = "INVALID_SESSION_STATE_TRANSITION"

// ErrInvalidSessionTransition is returned when a requested lifecycle change
// is not allowed.
var ErrInvalidSessionTransition = errors.New("invalid session state transition", errors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(errors.CodeBadRequest)

var sessionTransitions = map[SessionState]map[SessionState]struct{}{
	SessionStateUninitialized: {
		SessionStateLoading: {},
	},
	SessionStateLoading: {
		SessionStateAuthenticated: {},
		SessionStateAnonymous:     {},
	},
	SessionStateAuthenticated: {
		SessionStateAnonymous: {},
	},
	SessionStateAnonymous: {
		SessionStateAuthenticated: {},
	},
}

// SessionLifecycle tracks the session state machine:
// Uninitialized → Loading → {Authenticated, Anonymous}, with
// Authenticated ↔ Anonymous on later sign-ins and sign-outs. Loading is
// never re-entered after boot; actions keep the prior state until they
// resolve.
type SessionLifecycle struct {
	state SessionState
}

// NewSessionLifecycle starts at Uninitialized.
func NewSessionLifecycle() *SessionLifecycle {
	return &SessionLifecycle{state: SessionStateUninitialized}
}

// Current returns the lifecycle state.
func (l *SessionLifecycle) Current() SessionState {
	if l.state == "" {
		return SessionStateUninitialized
	}
	return l.state
}

// Transition moves to the target state. Moving to the current state is a
// no-op; a move the table does not allow fails with
// ErrInvalidSessionTransition.
func (l *SessionLifecycle) Transition(target SessionState) error {
	if target == "" {
		return ErrInvalidSessionTransition.WithMetadata(map[string]any{
			"reason": "target state is empty",
		})
	}

	from := l.Current()
	if from == target {
		return nil
	}

	if !l.canTransition(from, target) {
		return ErrInvalidSessionTransition.WithMetadata(map[string]any{
			"from": string(from),
			"to":   string(target),
		})
	}

	l.state = target
	return nil
}

func (l *SessionLifecycle) canTransition(from, to SessionState) bool {
	allowed, ok := sessionTransitions[from]
	if !ok {
		return false
	}
	_, exists := allowed[to]
	return exists
}
