package repository

import (
	"context"

	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
)

// MessageRepository defines persistence operations for messages and their
// side tables (attachments, reactions, pins).
type MessageRepository interface {
	// SaveMessage persists the message and returns the generated id.
	SaveMessage(ctx context.Context, m chat.Message) (string, error)

	// GetByID returns the message or nil when absent. Soft-deleted messages
	// are excluded.
	GetByID(ctx context.Context, id string) (*chat.Message, error)

	// ListByConversation returns messages newest first.
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]chat.Message, error)

	// LastMessage returns the most recent message of the conversation, or nil.
	LastMessage(ctx context.Context, conversationID string) (*chat.Message, error)

	// SaveImages attaches image URLs to a message, positions following slice order.
	SaveImages(ctx context.Context, messageID string, urls []string) error

	// ImagesFor returns attachments keyed by message id, ordered by position.
	ImagesFor(ctx context.Context, messageIDs []string) (map[string][]chat.MessageImage, error)

	// ReactionsFor returns the account's reaction kind keyed by message id.
	ReactionsFor(ctx context.Context, accountID string, messageIDs []string) (map[string]string, error)

	// SetReaction upserts the account's reaction to the message.
	SetReaction(ctx context.Context, messageID, accountID, kind string) error

	// Pin marks the message pinned within the conversation. Idempotent.
	Pin(ctx context.Context, conversationID, messageID, accountID string) error

	// ListPinned returns the conversation's pinned messages, newest pin first.
	ListPinned(ctx context.Context, conversationID string) ([]chat.Message, error)

	// CountUnread counts messages created after the member's last_read_at,
	// excluding the member's own.
	CountUnread(ctx context.Context, conversationID, accountID string) (int, error)
}
