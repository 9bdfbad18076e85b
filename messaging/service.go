// Package messaging wraps the chat and message records of the document
// store: conversation creation, message sending with last-message
// summaries, read receipts, and emoji reactions. All mutations are
// unconditional set updates with last-write-wins semantics; no ordering is
// guaranteed beyond what the backing store's query gives.
package messaging

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"

	chat "github.com/hallwaychat/go-chat"
)

// ChatStore persists conversation records.
type ChatStore interface {
	Create(ctx context.Context, c *Chat) error
	ByParticipant(ctx context.Context, userID string) ([]*Chat, error)
	SetLastMessage(ctx context.Context, chatID string, summary MessageSummary) error
	SetPinned(ctx context.Context, chatID string, pinned bool) error
}

// MessageStore persists message records. AddReader, AddReaction, and
// RemoveReaction are set-union/difference updates and therefore idempotent.
type MessageStore interface {
	Create(ctx context.Context, m *Message) error
	ByChat(ctx context.Context, chatID string) ([]*Message, error)
	AddReader(ctx context.Context, messageID, viewerID string) error
	AddReaction(ctx context.Context, messageID, emoji, viewerID string) error
	RemoveReaction(ctx context.Context, messageID, emoji, viewerID string) error
}

const (
	textCodeBadParticipants = "messaging_bad_participants"
	textCodeEmptyMessage    = "messaging_empty_message"
)

// ErrBadParticipants is returned when a chat is not between two distinct
// users.
var ErrBadParticipants = errors.New("a chat needs two distinct participants", errors.CategoryValidation).
	WithTextCode(textCodeBadParticipants).
	WithCode(errors.CodeBadRequest)

// ErrEmptyMessage is returned for messages with no text.
var ErrEmptyMessage = errors.New("message text is required", errors.CategoryValidation).
	WithTextCode(textCodeEmptyMessage).
	WithCode(errors.CodeBadRequest)

// Service exposes the chat/message operations.
type Service struct {
	chats    ChatStore
	messages MessageStore
	logger   chat.Logger
	now      func() time.Time
	newID    func() string
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithLogger overrides the default logger.
func WithLogger(logger chat.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithIDGenerator overrides record id generation (useful for tests).
func WithIDGenerator(gen func() string) ServiceOption {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewService returns a messaging service over the given stores.
func NewService(chats ChatStore, messages MessageStore, opts ...ServiceOption) *Service {
	s := &Service{
		chats:    chats,
		messages: messages,
		logger:   chat.DefaultLogger(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// CreateChat opens a conversation between two distinct users, unpinned and
// with no last message.
func (s *Service) CreateChat(ctx context.Context, userID1, userID2 string) (*Chat, error) {
	if userID1 == "" || userID2 == "" || userID1 == userID2 {
		return nil, ErrBadParticipants.WithMetadata(map[string]any{
			"participants": []string{userID1, userID2},
		})
	}

	c := &Chat{
		ID:           s.newID(),
		Participants: []string{userID1, userID2},
		Pinned:       false,
		CreatedAt:    s.now(),
	}

	if err := s.chats.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create chat")
	}

	return c, nil
}

// UserChats returns the user's conversations, newest first.
func (s *Service) UserChats(ctx context.Context, userID string) ([]*Chat, error) {
	return s.chats.ByParticipant(ctx, userID)
}

// SendMessage writes a message with the sender pre-marked as reader and no
// reactions, then updates the chat's last-message summary. The two writes
// are sequential; a failure between them leaves the summary stale.
func (s *Service) SendMessage(ctx context.Context, chatID, senderID, text string) (*Message, error) {
	if text == "" {
		return nil, ErrEmptyMessage
	}

	m := &Message{
		ID:        s.newID(),
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		SentAt:    s.now(),
		Read:      []string{senderID},
		Reactions: map[string][]string{},
	}

	if err := s.messages.Create(ctx, m); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create message")
	}

	if err := s.chats.SetLastMessage(ctx, chatID, m.Summary()); err != nil {
		s.logger.Error("chat summary left stale: chat=%s message=%s err=%s", chatID, m.ID, err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update chat summary").
			WithMetadata(map[string]any{"chat_id": chatID, "message_id": m.ID})
	}

	return m, nil
}

// ChatMessages returns a conversation's messages, oldest first.
func (s *Service) ChatMessages(ctx context.Context, chatID string) ([]*Message, error) {
	return s.messages.ByChat(ctx, chatID)
}

// MarkRead adds the viewer to the message's read set.
func (s *Service) MarkRead(ctx context.Context, messageID, viewerID string) error {
	return s.messages.AddReader(ctx, messageID, viewerID)
}

// AddReaction adds the viewer under the emoji's reaction set.
func (s *Service) AddReaction(ctx context.Context, messageID, emoji, viewerID string) error {
	return s.messages.AddReaction(ctx, messageID, emoji, viewerID)
}

// RemoveReaction removes the viewer from the emoji's reaction set.
func (s *Service) RemoveReaction(ctx context.Context, messageID, emoji, viewerID string) error {
	return s.messages.RemoveReaction(ctx, messageID, emoji, viewerID)
}

// SetPinned pins or unpins a conversation.
func (s *Service) SetPinned(ctx context.Context, chatID string, pinned bool) error {
	return s.chats.SetPinned(ctx, chatID, pinned)
}
