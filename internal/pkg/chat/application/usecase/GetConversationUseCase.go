package usecase

import (
	"context"
	"fmt"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/apperr"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
	identity "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/port"
)

type GetConversationInput struct {
	CallerID       string
	ConversationID string
}

// GetConversationUseCase returns one conversation the caller is a member of.
type GetConversationUseCase struct {
	Convs    repository.ConversationRepository
	Messages repository.MessageRepository
	Accounts identity.AccountRepository
}

func NewGetConversationUseCase(
	convs repository.ConversationRepository,
	messages repository.MessageRepository,
	accounts identity.AccountRepository,
) *GetConversationUseCase {
	return &GetConversationUseCase{Convs: convs, Messages: messages, Accounts: accounts}
}

func (uc *GetConversationUseCase) Execute(ctx context.Context, in GetConversationInput) (*ConversationResponse, error) {
	conv, err := uc.Convs.GetByID(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if conv == nil {
		return nil, apperr.NotFound("conversation not found")
	}

	ok, err := uc.Convs.IsMember(ctx, in.ConversationID, in.CallerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, apperr.Forbidden("caller is not a member of this conversation")
	}

	return assembleConversation(ctx, *conv, in.CallerID, uc.Convs, uc.Messages, uc.Accounts)
}
