package chat

import (
	"strings"
	"time"
)

// ConversationKind discriminates two-party threads from multi-party ones.
type ConversationKind string

const (
	ConversationKindPrivate ConversationKind = "PRIVATE"
	ConversationKindGroup   ConversationKind = "GROUP"
)

// maxGroupNameLen caps the auto-generated group name, ellipsis included.
const maxGroupNameLen = 50

// Conversation is a chat thread.
//
// Invariants: a PRIVATE conversation always has exactly 2 members and is
// unique per unordered pair of accounts; a GROUP conversation has >= 2 members
// and is only ever initiated by a business account. Membership is immutable
// for PRIVATE.
type Conversation struct {
	ID          string           `db:"id"`
	Kind        ConversationKind `db:"kind"`
	Name        *string          `db:"name"`
	Avatar      *string          `db:"avatar"`
	CountMember int              `db:"count_member"`
	CreatedAt   time.Time        `db:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at"`
}

// MemberKind expresses the role within a conversation.
type MemberKind string

const (
	MemberKindAdmin  MemberKind = "admin"
	MemberKindMember MemberKind = "member"
)

// Member captures membership, per-member nickname and read watermark.
// Primary key: (ConversationID, AccountID).
type Member struct {
	ConversationID string     `db:"conversation_id"`
	AccountID      string     `db:"account_id"`
	Kind           MemberKind `db:"kind"`
	Nickname       *string    `db:"nickname"`
	LastReadAt     *time.Time `db:"last_read_at"`
	CreatedAt      time.Time  `db:"created_at"`
}

// MemberProfile is a member enriched with its account for response assembly.
type MemberProfile struct {
	Account
	MemberKind MemberKind
	Nickname   *string
}

// DefaultGroupName joins the member display names, truncated to 50 characters
// with an ellipsis when longer.
func DefaultGroupName(members []Account) string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.FullName)
	}
	name := strings.Join(names, ", ")
	runes := []rune(name)
	if len(runes) <= maxGroupNameLen {
		return name
	}
	return string(runes[:maxGroupNameLen-3]) + "..."
}
