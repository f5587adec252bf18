package usecase

import (
	"context"
	"fmt"

	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
	identity "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/port"
)

type ListConversationsInput struct {
	CallerID string
	Limit    int
	Offset   int
}

// ListConversationsUseCase pages through the caller's conversations ordered by
// most recent activity.
type ListConversationsUseCase struct {
	Convs    repository.ConversationRepository
	Messages repository.MessageRepository
	Accounts identity.AccountRepository
}

func NewListConversationsUseCase(
	convs repository.ConversationRepository,
	messages repository.MessageRepository,
	accounts identity.AccountRepository,
) *ListConversationsUseCase {
	return &ListConversationsUseCase{Convs: convs, Messages: messages, Accounts: accounts}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) ([]ConversationResponse, error) {
	convs, err := uc.Convs.ListByAccount(ctx, in.CallerID, in.Limit, in.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	out := make([]ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		resp, err := assembleConversation(ctx, conv, in.CallerID, uc.Convs, uc.Messages, uc.Accounts)
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}
