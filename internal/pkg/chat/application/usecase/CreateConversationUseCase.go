package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/apperr"
	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
	identity "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/port"
)

// CreateConversationInput carries a get-or-create request: the caller plus the
// requested member ids (the caller's own id is tolerated and filtered out).
type CreateConversationInput struct {
	Caller    *chat.Account
	MemberIDs []string
}

// CreateConversationOutput reports the resolved conversation, whether this
// call created it, and the full membership (caller included) so transport
// layers can subscribe live connections and warm caches.
type CreateConversationOutput struct {
	Conversation *ConversationResponse
	Created      bool
	MemberIDs    []string
}

// CreateConversationUseCase resolves or creates the conversation for an exact
// membership set: PRIVATE for one other member, GROUP otherwise. Contact
// permission rules apply only when a conversation is actually created.
type CreateConversationUseCase struct {
	Convs    repository.ConversationRepository
	Messages repository.MessageRepository
	Accounts identity.AccountRepository
	Contact  *ContactPolicy
}

func NewCreateConversationUseCase(
	convs repository.ConversationRepository,
	messages repository.MessageRepository,
	accounts identity.AccountRepository,
) *CreateConversationUseCase {
	return &CreateConversationUseCase{
		Convs:    convs,
		Messages: messages,
		Accounts: accounts,
		Contact:  NewContactPolicy(accounts),
	}
}

func (uc *CreateConversationUseCase) Execute(ctx context.Context, in CreateConversationInput) (*CreateConversationOutput, error) {
	if in.Caller == nil {
		return nil, apperr.BadRequest("caller is required")
	}
	others, err := FilterMembers(in.MemberIDs, in.Caller.ID)
	if err != nil {
		return nil, err
	}
	all := append([]string{in.Caller.ID}, others...)

	existing, err := uc.Convs.FindByExactMembers(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if existing != nil {
		resp, err := assembleConversation(ctx, *existing, in.Caller.ID, uc.Convs, uc.Messages, uc.Accounts)
		if err != nil {
			return nil, err
		}
		return &CreateConversationOutput{Conversation: resp, Created: false, MemberIDs: all}, nil
	}

	var conv *chat.Conversation
	if len(others) == 1 {
		conv, err = uc.createPrivate(ctx, in.Caller, others[0])
	} else {
		conv, err = uc.createGroup(ctx, in.Caller, others)
	}
	if err != nil {
		return nil, err
	}

	resp, err := assembleConversation(ctx, *conv, in.Caller.ID, uc.Convs, uc.Messages, uc.Accounts)
	if err != nil {
		return nil, err
	}
	return &CreateConversationOutput{Conversation: resp, Created: true, MemberIDs: all}, nil
}

// GetExisting resolves the unique conversation whose membership set equals
// {caller} + memberIDs, NOT_FOUND when absent.
func (uc *CreateConversationUseCase) GetExisting(ctx context.Context, callerID string, memberIDs []string) (*ConversationResponse, error) {
	others, err := FilterMembers(memberIDs, callerID)
	if err != nil {
		return nil, err
	}
	all := append([]string{callerID}, others...)

	conv, err := uc.Convs.FindByExactMembers(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if conv == nil {
		return nil, apperr.NotFound("conversation not found for the given members")
	}
	return assembleConversation(ctx, *conv, callerID, uc.Convs, uc.Messages, uc.Accounts)
}

func (uc *CreateConversationUseCase) createPrivate(ctx context.Context, caller *chat.Account, otherID string) (*chat.Conversation, error) {
	other, err := uc.Accounts.GetByID(ctx, otherID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if other == nil {
		return nil, apperr.NotFound("account not found")
	}
	if err := uc.Contact.CheckValidContact(ctx, other, caller); err != nil {
		return nil, err
	}

	// Dedupe was already checked by the caller; re-check here so direct
	// invocations still honor the pair uniqueness invariant.
	existing, err := uc.Convs.FindByExactMembers(ctx, []string{caller.ID, other.ID})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if existing != nil {
		return nil, apperr.Conflict("a private conversation between these accounts already exists")
	}

	now := time.Now().UTC()
	conv := chat.Conversation{
		Kind:        chat.ConversationKindPrivate,
		CountMember: 2,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	members := []chat.Member{
		{AccountID: caller.ID, Kind: chat.MemberKindMember},
		{AccountID: other.ID, Kind: chat.MemberKindMember},
	}
	id, err := uc.Convs.CreateConversation(ctx, conv, members)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	conv.ID = id
	return &conv, nil
}

func (uc *CreateConversationUseCase) createGroup(ctx context.Context, caller *chat.Account, otherIDs []string) (*chat.Conversation, error) {
	otherAccounts, err := uc.Accounts.ListByIDs(ctx, otherIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if len(otherAccounts) != len(otherIDs) {
		return nil, apperr.NotFound("one or more accounts not found")
	}
	if err := uc.Contact.CheckBusinessValidContact(ctx, otherAccounts, caller); err != nil {
		return nil, err
	}

	all := append([]string{caller.ID}, otherIDs...)
	existing, err := uc.Convs.FindByExactMembers(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if existing != nil {
		return nil, apperr.Conflict("a conversation with this exact membership already exists")
	}

	name := chat.DefaultGroupName(otherAccounts)
	now := time.Now().UTC()
	conv := chat.Conversation{
		Kind:        chat.ConversationKindGroup,
		Name:        &name,
		CountMember: len(all),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	members := make([]chat.Member, 0, len(all))
	members = append(members, chat.Member{AccountID: caller.ID, Kind: chat.MemberKindAdmin})
	for _, id := range otherIDs {
		members = append(members, chat.Member{AccountID: id, Kind: chat.MemberKindMember})
	}
	id, err := uc.Convs.CreateConversation(ctx, conv, members)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	conv.ID = id
	return &conv, nil
}
