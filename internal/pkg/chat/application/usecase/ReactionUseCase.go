package usecase

import (
	"context"
	"fmt"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/apperr"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
)

// Reaction kinds mirror the message counters.
const (
	ReactionLike    = "LIKE"
	ReactionDislike = "DISLIKE"
)

type SetReactionInput struct {
	CallerID  string
	MessageID string
	Kind      string
}

// SetReactionUseCase upserts the caller's reaction to a message: at most one
// reaction per (message, account) pair, the newest kind wins.
type SetReactionUseCase struct {
	Convs    repository.ConversationRepository
	Messages repository.MessageRepository
}

func NewSetReactionUseCase(convs repository.ConversationRepository, messages repository.MessageRepository) *SetReactionUseCase {
	return &SetReactionUseCase{Convs: convs, Messages: messages}
}

func (uc *SetReactionUseCase) Execute(ctx context.Context, in SetReactionInput) error {
	if in.Kind != ReactionLike && in.Kind != ReactionDislike {
		return apperr.BadRequest("unknown reaction kind")
	}

	msg, err := uc.Messages.GetByID(ctx, in.MessageID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if msg == nil {
		return apperr.NotFound("message not found")
	}

	ok, err := uc.Convs.IsMember(ctx, msg.ConversationID, in.CallerID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return apperr.Forbidden("caller is not a member of this conversation")
	}

	if err := uc.Messages.SetReaction(ctx, in.MessageID, in.CallerID, in.Kind); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
