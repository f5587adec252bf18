package usecase

import (
	"context"
	"fmt"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/apperr"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
	identity "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/port"
)

type PinMessageInput struct {
	CallerID       string
	ConversationID string
	MessageID      string
}

// PinMessageUseCase pins a message within its conversation. Idempotent.
type PinMessageUseCase struct {
	Convs    repository.ConversationRepository
	Messages repository.MessageRepository
}

func NewPinMessageUseCase(convs repository.ConversationRepository, messages repository.MessageRepository) *PinMessageUseCase {
	return &PinMessageUseCase{Convs: convs, Messages: messages}
}

func (uc *PinMessageUseCase) Execute(ctx context.Context, in PinMessageInput) error {
	msg, err := uc.Messages.GetByID(ctx, in.MessageID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if msg == nil || msg.ConversationID != in.ConversationID {
		return apperr.NotFound("message not found in this conversation")
	}

	ok, err := uc.Convs.IsMember(ctx, in.ConversationID, in.CallerID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return apperr.Forbidden("caller is not a member of this conversation")
	}

	if err := uc.Messages.Pin(ctx, in.ConversationID, in.MessageID, in.CallerID); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

type ListPinnedInput struct {
	CallerID       string
	ConversationID string
}

// ListPinnedUseCase returns the conversation's pinned messages, newest pin
// first, with sender profiles.
type ListPinnedUseCase struct {
	Convs    repository.ConversationRepository
	Messages repository.MessageRepository
	Accounts identity.AccountRepository
}

func NewListPinnedUseCase(
	convs repository.ConversationRepository,
	messages repository.MessageRepository,
	accounts identity.AccountRepository,
) *ListPinnedUseCase {
	return &ListPinnedUseCase{Convs: convs, Messages: messages, Accounts: accounts}
}

func (uc *ListPinnedUseCase) Execute(ctx context.Context, in ListPinnedInput) ([]MessageResponse, error) {
	ok, err := uc.Convs.IsMember(ctx, in.ConversationID, in.CallerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, apperr.Forbidden("caller is not a member of this conversation")
	}

	msgs, err := uc.Messages.ListPinned(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, m := range msgs {
		if _, ok := seen[m.AccountID]; !ok {
			seen[m.AccountID] = struct{}{}
			ids = append(ids, m.AccountID)
		}
	}
	accounts, err := uc.Accounts.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	profiles := make(map[string]AccountProfile, len(accounts))
	for _, a := range accounts {
		profiles[a.ID] = ProfileOf(a)
	}

	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		sender, ok := profiles[m.AccountID]
		if !ok {
			sender = AccountProfile{ID: m.AccountID}
		}
		out = append(out, NewMessageResponse(m, sender))
	}
	return out, nil
}
