package messaging

import (
	"time"

	"github.com/uptrace/bun"
)

// MessageSummary is the chat-level copy of the most recent message.
type MessageSummary struct {
	Text     string    `json:"text"`
	SenderID string    `json:"senderId"`
	SentAt   time.Time `json:"timestamp"`
}

// Chat is a conversation record between exactly two participants, keyed by
// an auto-generated id.
type Chat struct {
	bun.BaseModel `bun:"table:chats,alias:cht"`

	ID           string          `bun:"id,pk" json:"id"`
	Participants []string        `bun:"participants,type:jsonb" json:"participants"`
	LastMessage  *MessageSummary `bun:"last_message,type:jsonb" json:"lastMessage,omitempty"`
	Pinned       bool            `bun:"pinned" json:"pinned"`
	CreatedAt    time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

// HasParticipant reports membership in the participant pair.
func (c *Chat) HasParticipant(id string) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// Message is a single chat message. The read set holds the viewer ids that
// have seen it; reactions maps an emoji to the viewer ids that reacted.
// There is no ownership model beyond senderId.
type Message struct {
	bun.BaseModel `bun:"table:messages,alias:msg"`

	ID        string              `bun:"id,pk" json:"id"`
	ChatID    string              `bun:"chat_id,notnull" json:"chatId"`
	SenderID  string              `bun:"sender_id,notnull" json:"senderId"`
	Text      string              `bun:"text,notnull" json:"text"`
	SentAt    time.Time           `bun:"sent_at,notnull,default:current_timestamp" json:"timestamp"`
	Read      []string            `bun:"read,type:jsonb" json:"read"`
	Reactions map[string][]string `bun:"reactions,type:jsonb" json:"reactions"`
}

// ReadBy reports whether the viewer has seen this message.
func (m *Message) ReadBy(viewerID string) bool {
	for _, id := range m.Read {
		if id == viewerID {
			return true
		}
	}
	return false
}

// ReactedWith reports whether the viewer reacted with the given emoji.
func (m *Message) ReactedWith(emoji, viewerID string) bool {
	for _, id := range m.Reactions[emoji] {
		if id == viewerID {
			return true
		}
	}
	return false
}

// Summary condenses the message into the form stored on its chat.
func (m *Message) Summary() MessageSummary {
	return MessageSummary{
		Text:     m.Text,
		SenderID: m.SenderID,
		SentAt:   m.SentAt,
	}
}
