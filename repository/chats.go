package repository

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/hallwaychat/go-chat/messaging"
)

// ErrChatNotFound is returned for updates against a missing chat record.
var ErrChatNotFound = errors.New("chat not found", errors.CategoryNotFound).
	WithTextCode("chat_not_found").
	WithCode(errors.CodeNotFound)

// Chats persists conversation records.
type Chats struct {
	db *bun.DB
}

var _ messaging.ChatStore = (*Chats)(nil)

// NewChats returns a chat repository over the given DB.
func NewChats(db *bun.DB) *Chats {
	return &Chats{db: db}
}

// Create implements messaging.ChatStore.
func (r *Chats) Create(ctx context.Context, c *messaging.Chat) error {
	if _, err := r.db.NewInsert().Model(c).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to insert chat")
	}
	return nil
}

// ByParticipant implements messaging.ChatStore: the user's conversations,
// newest first. The participants column is a JSON array; the LIKE
// prefilter narrows on the quoted id and membership is confirmed on the
// decoded record.
func (r *Chats) ByParticipant(ctx context.Context, userID string) ([]*messaging.Chat, error) {
	var records []*messaging.Chat
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.participants LIKE ?", "%\""+userID+"\"%").
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*messaging.Chat{}, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list chats")
	}

	chats := make([]*messaging.Chat, 0, len(records))
	for _, c := range records {
		if c.HasParticipant(userID) {
			chats = append(chats, c)
		}
	}
	return chats, nil
}

// SetLastMessage implements messaging.ChatStore.
func (r *Chats) SetLastMessage(ctx context.Context, chatID string, summary messaging.MessageSummary) error {
	record := &messaging.Chat{
		ID:          chatID,
		LastMessage: &summary,
	}

	res, err := r.db.NewUpdate().
		Model(record).
		Column("last_message").
		Where("?TableAlias.id = ?", chatID).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update last message")
	}

	return requireChat(res, chatID)
}

// SetPinned implements messaging.ChatStore.
func (r *Chats) SetPinned(ctx context.Context, chatID string, pinned bool) error {
	res, err := r.db.NewUpdate().
		Model((*messaging.Chat)(nil)).
		Set("pinned = ?", pinned).
		Where("?TableAlias.id = ?", chatID).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update pinned flag")
	}

	return requireChat(res, chatID)
}

func requireChat(res sql.Result, chatID string) error {
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrChatNotFound.WithMetadata(map[string]any{"id": chatID})
	}
	return nil
}
