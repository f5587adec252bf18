package chat

import (
	"errors"
	"strings"
	"time"
)

// MessageType represents the kind of message content.
type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeImage MessageType = "IMAGE"
)

// Message is a log entry in a conversation, immutable once delivered except
// for the reaction/pin side tables and counters.
type Message struct {
	ID             string      `db:"id"`
	ConversationID string      `db:"conversation_id"`
	AccountID      string      `db:"account_id"`
	Type           MessageType `db:"type"`
	Content        *string     `db:"content"`
	ParentID       *string     `db:"parent_id"`
	CountLike      int         `db:"count_like"`
	CountDislike   int         `db:"count_dislike"`
	IsPinned       bool        `db:"is_pinned"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
	DeletedAt      *time.Time  `db:"deleted_at"`
}

// MessageImage is one attachment of an IMAGE message, ordered by Position.
type MessageImage struct {
	ID        string `db:"id"`
	MessageID string `db:"message_id"`
	URL       string `db:"url"`
	Position  int    `db:"position"`
}

// Reaction records one account's reaction to one message; at most one per
// (message, account) pair.
type Reaction struct {
	MessageID string `db:"message_id"`
	AccountID string `db:"account_id"`
	Kind      string `db:"kind"`
}

// PinnedMessage marks a message as pinned within a conversation.
type PinnedMessage struct {
	ConversationID string    `db:"conversation_id"`
	MessageID      string    `db:"message_id"`
	AccountID      string    `db:"account_id"`
	CreatedAt      time.Time `db:"created_at"`
}

// NewMessage validates and normalizes a message before persistence. TEXT
// messages must carry non-blank content; IMAGE messages get their content
// attached separately as MessageImage rows.
func NewMessage(m Message) (*Message, error) {
	if m.ConversationID == "" || m.AccountID == "" {
		return nil, errors.New("conversation_id and account_id are required")
	}
	if m.Type == "" {
		m.Type = MessageTypeText
	}

	if m.Content != nil {
		trimmed := strings.TrimSpace(*m.Content)
		if trimmed == "" {
			m.Content = nil
		} else {
			m.Content = &trimmed
		}
	}
	if m.Type == MessageTypeText && m.Content == nil {
		return nil, errors.New("text message must contain content")
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return &m, nil
}
