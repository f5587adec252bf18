package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/objectstore"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/apperr"
	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
)

type UploadAttachmentInput struct {
	Caller         *chat.Account
	ConversationID string
	Filename       string
	Body           io.Reader
}

// UploadAttachmentUseCase stores the uploaded binary, persists an IMAGE
// message and attaches the resulting URL to it.
type UploadAttachmentUseCase struct {
	Convs    repository.ConversationRepository
	Messages repository.MessageRepository
	Store    objectstore.Store
	Unread   *UnreadCounter
}

func NewUploadAttachmentUseCase(
	convs repository.ConversationRepository,
	messages repository.MessageRepository,
	store objectstore.Store,
	unread *UnreadCounter,
) *UploadAttachmentUseCase {
	return &UploadAttachmentUseCase{Convs: convs, Messages: messages, Store: store, Unread: unread}
}

func (uc *UploadAttachmentUseCase) Execute(ctx context.Context, in UploadAttachmentInput) (*SendMessageOutput, error) {
	if in.Caller == nil {
		return nil, apperr.BadRequest("caller is required")
	}
	if in.Body == nil {
		return nil, apperr.BadRequest("attachment body is required")
	}

	ok, err := uc.Convs.IsMember(ctx, in.ConversationID, in.Caller.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, apperr.Forbidden("caller is not a member of this conversation")
	}

	// The binary goes to object storage first; the message row only ever
	// references an already-uploaded key.
	url, err := uc.Store.Put(ctx, in.Filename, in.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	msg, err := chat.NewMessage(chat.Message{
		ConversationID: in.ConversationID,
		AccountID:      in.Caller.ID,
		Type:           chat.MessageTypeImage,
	})
	if err != nil {
		return nil, apperr.BadRequest(err.Error())
	}
	id, err := uc.Messages.SaveMessage(ctx, *msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.ID = id

	if err := uc.Messages.SaveImages(ctx, id, []string{url}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	members, err := uc.Convs.ListMembers(ctx, in.ConversationID, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	var recipients []string
	for _, m := range members {
		if m.ID != in.Caller.ID {
			recipients = append(recipients, m.ID)
			uc.Unread.Increase(ctx, m.ID, in.ConversationID)
		}
	}

	resp := NewMessageResponse(*msg, ProfileOf(*in.Caller))
	resp.Images = []string{url}
	return &SendMessageOutput{Message: &resp, RecipientIDs: recipients}, nil
}
