package repository

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/hallwaychat/go-chat/messaging"
)

// ErrMessageNotFound is returned for updates against a missing message.
var ErrMessageNotFound = errors.New("message not found", errors.CategoryNotFound).
	WithTextCode("message_not_found").
	WithCode(errors.CodeNotFound)

// Messages persists message records.
type Messages struct {
	db *bun.DB
}

var _ messaging.MessageStore = (*Messages)(nil)

// NewMessages returns a message repository over the given DB.
func NewMessages(db *bun.DB) *Messages {
	return &Messages{db: db}
}

// Create implements messaging.MessageStore.
func (r *Messages) Create(ctx context.Context, m *messaging.Message) error {
	if m.Read == nil {
		m.Read = []string{}
	}
	if m.Reactions == nil {
		m.Reactions = map[string][]string{}
	}

	if _, err := r.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to insert message")
	}
	return nil
}

// ByChat implements messaging.MessageStore: a conversation's messages,
// oldest first.
func (r *Messages) ByChat(ctx context.Context, chatID string) ([]*messaging.Message, error) {
	var records []*messaging.Message
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.chat_id = ?", chatID).
		Order("sent_at ASC").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*messaging.Message{}, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list messages")
	}

	if records == nil {
		records = []*messaging.Message{}
	}
	return records, nil
}

// AddReader implements messaging.MessageStore. Re-adding a viewer is a
// no-op.
func (r *Messages) AddReader(ctx context.Context, messageID, viewerID string) error {
	return r.mutate(ctx, messageID, "read", func(m *messaging.Message) bool {
		if m.ReadBy(viewerID) {
			return false
		}
		m.Read = append(m.Read, viewerID)
		return true
	})
}

// AddReaction implements messaging.MessageStore. Re-adding the same
// reaction is a no-op.
func (r *Messages) AddReaction(ctx context.Context, messageID, emoji, viewerID string) error {
	return r.mutate(ctx, messageID, "reactions", func(m *messaging.Message) bool {
		if m.ReactedWith(emoji, viewerID) {
			return false
		}
		if m.Reactions == nil {
			m.Reactions = map[string][]string{}
		}
		m.Reactions[emoji] = append(m.Reactions[emoji], viewerID)
		return true
	})
}

// RemoveReaction implements messaging.MessageStore. Removing an absent
// reaction is a no-op.
func (r *Messages) RemoveReaction(ctx context.Context, messageID, emoji, viewerID string) error {
	return r.mutate(ctx, messageID, "reactions", func(m *messaging.Message) bool {
		viewers := m.Reactions[emoji]
		for i, id := range viewers {
			if id != viewerID {
				continue
			}
			remaining := append(viewers[:i:i], viewers[i+1:]...)
			if len(remaining) == 0 {
				delete(m.Reactions, emoji)
			} else {
				m.Reactions[emoji] = remaining
			}
			return true
		}
		return false
	})
}

// mutate runs a read-modify-write on one message column inside a
// transaction. The apply func reports whether anything changed.
func (r *Messages) mutate(ctx context.Context, messageID, column string, apply func(*messaging.Message) bool) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &messaging.Message{}
		err := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", messageID).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMessageNotFound.WithMetadata(map[string]any{"id": messageID})
			}
			return errors.Wrap(err, errors.CategoryInternal, "failed to load message")
		}

		if !apply(record) {
			return nil
		}

		_, err = tx.NewUpdate().
			Model(record).
			Column(column).
			Where("?TableAlias.id = ?", messageID).
			Exec(ctx)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to write message update")
		}

		return nil
	})
}
