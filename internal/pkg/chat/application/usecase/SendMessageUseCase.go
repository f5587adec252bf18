package usecase

import (
	"context"
	"fmt"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/apperr"
	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
)

type SendMessageInput struct {
	Caller         *chat.Account
	ConversationID string
	Content        string
	ParentID       *string
}

// SendMessageOutput carries the assembled message plus the other members'
// ids so transport layers can enqueue unread reconciliation for them.
type SendMessageOutput struct {
	Message      *MessageResponse
	RecipientIDs []string
}

// SendMessageUseCase persists a text message and bumps the recipients' cached
// unread counters. Replies carry a parent_id in the data model but are not a
// supported send path.
type SendMessageUseCase struct {
	Convs    repository.ConversationRepository
	Messages repository.MessageRepository
	Unread   *UnreadCounter
}

func NewSendMessageUseCase(
	convs repository.ConversationRepository,
	messages repository.MessageRepository,
	unread *UnreadCounter,
) *SendMessageUseCase {
	return &SendMessageUseCase{Convs: convs, Messages: messages, Unread: unread}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	if in.Caller == nil {
		return nil, apperr.BadRequest("caller is required")
	}
	if in.ParentID != nil {
		return nil, apperr.BadRequest("replying to a message is not supported")
	}

	ok, err := uc.Convs.IsMember(ctx, in.ConversationID, in.Caller.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, apperr.Forbidden("caller is not a member of this conversation")
	}

	content := in.Content
	msg, err := chat.NewMessage(chat.Message{
		ConversationID: in.ConversationID,
		AccountID:      in.Caller.ID,
		Type:           chat.MessageTypeText,
		Content:        &content,
	})
	if err != nil {
		return nil, apperr.BadRequest(err.Error())
	}

	id, err := uc.Messages.SaveMessage(ctx, *msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.ID = id

	recipients, err := uc.recipientIDs(ctx, in.ConversationID, in.Caller.ID)
	if err != nil {
		return nil, err
	}
	for _, accountID := range recipients {
		uc.Unread.Increase(ctx, accountID, in.ConversationID)
	}

	resp := NewMessageResponse(*msg, ProfileOf(*in.Caller))
	return &SendMessageOutput{Message: &resp, RecipientIDs: recipients}, nil
}

func (uc *SendMessageUseCase) recipientIDs(ctx context.Context, conversationID, callerID string) ([]string, error) {
	members, err := uc.Convs.ListMembers(ctx, conversationID, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	var out []string
	for _, m := range members {
		if m.ID != callerID {
			out = append(out, m.ID)
		}
	}
	return out, nil
}
