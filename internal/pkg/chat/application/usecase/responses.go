package usecase

import (
	"context"
	"fmt"
	"time"

	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
	identity "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/port"
)

// groupMemberPreview caps how many members a GROUP conversation response carries.
const groupMemberPreview = 5

// AccountProfile is the sender/member projection embedded in responses.
type AccountProfile struct {
	ID       string  `json:"id"`
	FullName string  `json:"full_name"`
	Avatar   *string `json:"avatar"`
}

func ProfileOf(a chat.Account) AccountProfile {
	return AccountProfile{ID: a.ID, FullName: a.FullName, Avatar: a.Avatar}
}

// MessageResponse is the wire shape of one message, enriched with the sender
// profile and, where relevant, parent, attachments and the caller's reaction.
type MessageResponse struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Sender         AccountProfile   `json:"sender"`
	Type           chat.MessageType `json:"type"`
	Content        *string          `json:"content"`
	Parent         *MessageResponse `json:"parent,omitempty"`
	Images         []string         `json:"images,omitempty"`
	Reaction       *string          `json:"reaction,omitempty"`
	CountLike      int              `json:"count_like"`
	CountDislike   int              `json:"count_dislike"`
	IsPinned       bool             `json:"is_pinned"`
	CreatedAt      time.Time        `json:"created_at"`
}

func NewMessageResponse(m chat.Message, sender AccountProfile) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         sender,
		Type:           m.Type,
		Content:        m.Content,
		CountLike:      m.CountLike,
		CountDislike:   m.CountDislike,
		IsPinned:       m.IsPinned,
		CreatedAt:      m.CreatedAt,
	}
}

// MemberView is one conversation member in a response.
type MemberView struct {
	AccountProfile
	MemberKind chat.MemberKind `json:"member_kind"`
	Nickname   *string         `json:"nickname,omitempty"`
}

// ConversationResponse is the wire shape of one conversation. For PRIVATE
// conversations Members holds the single *other* member; for GROUP it holds up
// to groupMemberPreview members ordered admin first.
type ConversationResponse struct {
	ID          string                `json:"id"`
	Kind        chat.ConversationKind `json:"kind"`
	Name        *string               `json:"name"`
	Avatar      *string               `json:"avatar"`
	CountMember int                   `json:"count_member"`
	Members     []MemberView          `json:"members"`
	LastMessage *MessageResponse      `json:"last_message,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// assembleConversation builds the response for one conversation from the
// caller's point of view.
func assembleConversation(
	ctx context.Context,
	conv chat.Conversation,
	callerID string,
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	accounts identity.AccountRepository,
) (*ConversationResponse, error) {
	resp := &ConversationResponse{
		ID:          conv.ID,
		Kind:        conv.Kind,
		Name:        conv.Name,
		Avatar:      conv.Avatar,
		CountMember: conv.CountMember,
		CreatedAt:   conv.CreatedAt,
		UpdatedAt:   conv.UpdatedAt,
	}

	limit := groupMemberPreview
	if conv.Kind == chat.ConversationKindPrivate {
		limit = 0 // both rows; the caller is filtered below
	}
	members, err := convRepo.ListMembers(ctx, conv.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	for _, m := range members {
		if conv.Kind == chat.ConversationKindPrivate && m.ID == callerID {
			continue
		}
		resp.Members = append(resp.Members, MemberView{
			AccountProfile: ProfileOf(m.Account),
			MemberKind:     m.MemberKind,
			Nickname:       m.Nickname,
		})
	}

	last, err := msgRepo.LastMessage(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if last != nil {
		sender := AccountProfile{ID: last.AccountID}
		if acc, err := accounts.GetByID(ctx, last.AccountID); err == nil && acc != nil {
			sender = ProfileOf(*acc)
		}
		lastResp := NewMessageResponse(*last, sender)
		resp.LastMessage = &lastResp
	}

	return resp, nil
}
