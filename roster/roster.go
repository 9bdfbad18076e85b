// Package roster manages the friend graph stored on profile records:
// requests, acceptance, rejection, and blocking. Relationships live in two
// arrays per profile (friends, friendRequests); symmetry only holds after
// both sides' writes complete — the writes are independent, not atomic.
package roster

import (
	"context"

	"github.com/goliatone/go-errors"

	chat "github.com/hallwaychat/go-chat"
)

// Store is the slice of the profile store the roster needs. Every mutation
// is an unconditional set-union or set-difference update, so repeating an
// operation is idempotent; concurrent conflicting operations on the same
// request are last-write-wins.
type Store interface {
	Get(ctx context.Context, id string) (*chat.Profile, error)

	AddFriend(ctx context.Context, id, friendID string) error
	RemoveFriend(ctx context.Context, id, friendID string) error
	AddRequest(ctx context.Context, id, fromID string) error
	RemoveRequest(ctx context.Context, id, fromID string) error
	AddBlocked(ctx context.Context, id, blockedID string) error
	RemoveBlocked(ctx context.Context, id, blockedID string) error
}

const (
	textCodeSelfFriend = "roster_self_reference"
	textCodeBlocked    = "roster_sender_blocked"
)

// ErrSelfReference is returned for operations where both sides are the
// same user.
var ErrSelfReference = errors.New("cannot befriend yourself", errors.CategoryValidation).
	WithTextCode(textCodeSelfFriend).
	WithCode(errors.CodeBadRequest)

// ErrSenderBlocked is returned when sending a request to a user who has
// blocked the sender.
var ErrSenderBlocked = errors.New("this user is not accepting requests from you", errors.CategoryAuthz).
	WithTextCode(textCodeBlocked).
	WithCode(errors.CodeForbidden)

// Manager exposes friend operations over a profile store.
type Manager struct {
	store  Store
	logger chat.Logger
}

// ManagerOption customizes the manager.
type ManagerOption func(*Manager)

// WithLogger overrides the default logger.
func WithLogger(logger chat.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager returns a roster manager over the given store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		logger: chat.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// SendRequest records a pending friend request on the receiver's profile.
// A receiver who has blocked the sender rejects the request.
func (m *Manager) SendRequest(ctx context.Context, senderID, receiverID string) error {
	if senderID == receiverID {
		return ErrSelfReference
	}

	receiver, err := m.store.Get(ctx, receiverID)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to load receiver profile").
			WithMetadata(map[string]any{"receiver": receiverID})
	}

	if receiver.HasBlocked(senderID) {
		return ErrSenderBlocked.WithMetadata(map[string]any{
			"sender":   senderID,
			"receiver": receiverID,
		})
	}

	return m.store.AddRequest(ctx, receiverID, senderID)
}

// Accept turns a pending request into a mutual friendship: the accepter
// gains the friend and drops the request, then the friend gains the
// accepter. The two profile writes are sequential and can be torn by a
// failure between them; re-running Accept converges to the same state.
func (m *Manager) Accept(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return ErrSelfReference
	}

	if err := m.store.AddFriend(ctx, userID, friendID); err != nil {
		return err
	}
	if err := m.store.RemoveRequest(ctx, userID, friendID); err != nil {
		return err
	}

	if err := m.store.AddFriend(ctx, friendID, userID); err != nil {
		m.logger.Error("friendship left one-sided, re-run accept: user=%s friend=%s err=%s", userID, friendID, err)
		return err
	}

	return nil
}

// Reject drops a pending request without touching either friends set.
func (m *Manager) Reject(ctx context.Context, userID, friendID string) error {
	return m.store.RemoveRequest(ctx, userID, friendID)
}

// Friends returns the user's friend ids, never nil.
func (m *Manager) Friends(ctx context.Context, userID string) ([]string, error) {
	profile, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.Friends == nil {
		return []string{}, nil
	}
	return profile.Friends, nil
}

// Requests returns the user's pending friend-request ids, never nil.
func (m *Manager) Requests(ctx context.Context, userID string) ([]string, error) {
	profile, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.FriendRequests == nil {
		return []string{}, nil
	}
	return profile.FriendRequests, nil
}

// Block adds a user to the blocked set and removes any existing
// friendship or pending request between the pair on the blocker's side.
func (m *Manager) Block(ctx context.Context, userID, blockedID string) error {
	if userID == blockedID {
		return ErrSelfReference
	}

	if err := m.store.AddBlocked(ctx, userID, blockedID); err != nil {
		return err
	}
	if err := m.store.RemoveFriend(ctx, userID, blockedID); err != nil {
		return err
	}
	return m.store.RemoveRequest(ctx, userID, blockedID)
}

// Unblock removes a user from the blocked set.
func (m *Manager) Unblock(ctx context.Context, userID, blockedID string) error {
	return m.store.RemoveBlocked(ctx, userID, blockedID)
}
