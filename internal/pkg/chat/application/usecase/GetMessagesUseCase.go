package usecase

import (
	"context"
	"fmt"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/apperr"
	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
	identity "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/port"
)

type GetMessagesInput struct {
	CallerID       string
	ConversationID string
	Limit          int
	Offset         int
}

// GetMessagesUseCase returns a conversation's messages newest first, each
// enriched with the sender profile, optional parent, attachments (IMAGE
// messages only) and the caller's own reaction. The membership gate goes to
// storage, not the cache: this is a direct data-access path, not the
// connect-time warm path.
type GetMessagesUseCase struct {
	Convs    repository.ConversationRepository
	Messages repository.MessageRepository
	Accounts identity.AccountRepository
}

func NewGetMessagesUseCase(
	convs repository.ConversationRepository,
	messages repository.MessageRepository,
	accounts identity.AccountRepository,
) *GetMessagesUseCase {
	return &GetMessagesUseCase{Convs: convs, Messages: messages, Accounts: accounts}
}

func (uc *GetMessagesUseCase) Execute(ctx context.Context, in GetMessagesInput) ([]MessageResponse, error) {
	ok, err := uc.Convs.IsMember(ctx, in.ConversationID, in.CallerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, apperr.Forbidden("caller is not a member of this conversation")
	}

	msgs, err := uc.Messages.ListByConversation(ctx, in.ConversationID, in.Limit, in.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	profiles, err := uc.senderProfiles(ctx, msgs)
	if err != nil {
		return nil, err
	}

	var messageIDs, imageMessageIDs []string
	for _, m := range msgs {
		messageIDs = append(messageIDs, m.ID)
		if m.Type == chat.MessageTypeImage {
			imageMessageIDs = append(imageMessageIDs, m.ID)
		}
	}

	images, err := uc.Messages.ImagesFor(ctx, imageMessageIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	reactions, err := uc.Messages.ReactionsFor(ctx, in.CallerID, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp := NewMessageResponse(m, profiles[m.AccountID])
		for _, img := range images[m.ID] {
			resp.Images = append(resp.Images, img.URL)
		}
		if kind, ok := reactions[m.ID]; ok {
			k := kind
			resp.Reaction = &k
		}
		if m.ParentID != nil {
			parent, err := uc.parentResponse(ctx, *m.ParentID, profiles)
			if err != nil {
				return nil, err
			}
			resp.Parent = parent
		}
		out = append(out, resp)
	}
	return out, nil
}

func (uc *GetMessagesUseCase) senderProfiles(ctx context.Context, msgs []chat.Message) (map[string]AccountProfile, error) {
	idSet := make(map[string]struct{})
	var ids []string
	for _, m := range msgs {
		if _, ok := idSet[m.AccountID]; !ok {
			idSet[m.AccountID] = struct{}{}
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
	// Senders whose accounts disappeared still show up with their id.
	for id := range idSet {
		if _, ok := profiles[id]; !ok {
			profiles[id] = AccountProfile{ID: id}
		}
	}
	return profiles, nil
}

func (uc *GetMessagesUseCase) parentResponse(ctx context.Context, parentID string, profiles map[string]AccountProfile) (*MessageResponse, error) {
	parent, err := uc.Messages.GetByID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if parent == nil {
		return nil, nil
	}
	sender, ok := profiles[parent.AccountID]
	if !ok {
		sender = AccountProfile{ID: parent.AccountID}
		if acc, err := uc.Accounts.GetByID(ctx, parent.AccountID); err == nil && acc != nil {
			sender = ProfileOf(*acc)
		}
	}
	resp := NewMessageResponse(*parent, sender)
	return &resp, nil
}
