package repository

import (
	"context"
	"time"

	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
)

// ConversationRepository defines persistence operations for conversations and
// their membership.
type ConversationRepository interface {
	// CreateConversation inserts the conversation and all member rows in one
	// transaction and returns the generated id.
	CreateConversation(ctx context.Context, c chat.Conversation, members []chat.Member) (string, error)

	// FindByExactMembers resolves the conversation whose membership set equals
	// exactly accountIDs, independent of order. Returns nil when absent.
	FindByExactMembers(ctx context.Context, accountIDs []string) (*chat.Conversation, error)

	// GetByID returns the conversation or nil when absent.
	GetByID(ctx context.Context, id string) (*chat.Conversation, error)

	// ListByAccount returns the account's conversations ordered by most recent
	// activity.
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]chat.Conversation, error)

	// ListConversationIDs returns every conversation id the account belongs to.
	ListConversationIDs(ctx context.Context, accountID string) ([]string, error)

	// IsMember reports whether the account belongs to the conversation.
	IsMember(ctx context.Context, conversationID, accountID string) (bool, error)

	// ListMembers returns up to limit members with their account profiles,
	// ordered admin first. limit <= 0 means no limit.
	ListMembers(ctx context.Context, conversationID string, limit int) ([]chat.MemberProfile, error)

	// UpdateConversation sets name and/or avatar; nil fields are left untouched.
	UpdateConversation(ctx context.Context, id string, name, avatar *string) error

	// SetLastRead advances the member's read watermark.
	SetLastRead(ctx context.Context, conversationID, accountID string, at time.Time) error
}
