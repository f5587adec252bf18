package usecase

import (
	"context"
	"fmt"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/apperr"
	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
	identity "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/port"
)

type UpdateConversationInput struct {
	CallerID       string
	ConversationID string
	Name           *string
	Avatar         *string
}

// UpdateConversationUseCase renames or re-avatars a GROUP conversation.
// PRIVATE conversations derive their display from the other member and cannot
// be updated.
type UpdateConversationUseCase struct {
	Convs    repository.ConversationRepository
	Messages repository.MessageRepository
	Accounts identity.AccountRepository
}

func NewUpdateConversationUseCase(
	convs repository.ConversationRepository,
	messages repository.MessageRepository,
	accounts identity.AccountRepository,
) *UpdateConversationUseCase {
	return &UpdateConversationUseCase{Convs: convs, Messages: messages, Accounts: accounts}
}

func (uc *UpdateConversationUseCase) Execute(ctx context.Context, in UpdateConversationInput) (*ConversationResponse, error) {
	if in.Name == nil && in.Avatar == nil {
		return nil, apperr.BadRequest("nothing to update")
	}

	conv, err := uc.Convs.GetByID(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if conv == nil {
		return nil, apperr.NotFound("conversation not found")
	}
	if conv.Kind != chat.ConversationKindGroup {
		return nil, apperr.BadRequest("only group conversations can be updated")
	}

	ok, err := uc.Convs.IsMember(ctx, in.ConversationID, in.CallerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, apperr.Forbidden("caller is not a member of this conversation")
	}

	if err := uc.Convs.UpdateConversation(ctx, in.ConversationID, in.Name, in.Avatar); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	updated, err := uc.Convs.GetByID(ctx, in.ConversationID)
	if err != nil || updated == nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return assembleConversation(ctx, *updated, in.CallerID, uc.Convs, uc.Messages, uc.Accounts)
}
