package usecase

import (
	"context"
	"fmt"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/apperr"
	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	identity "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/port"
)

// ContactPolicy enforces who is allowed to open a conversation with whom.
// Conversations only exist where there is a job-application relationship:
// a candidate who applied to a campaign owned by the business.
type ContactPolicy struct {
	Accounts identity.AccountRepository
}

func NewContactPolicy(accounts identity.AccountRepository) *ContactPolicy {
	return &ContactPolicy{Accounts: accounts}
}

// CheckValidContact validates a two-party contact: one side must be a business
// account and the other a normal one, and the candidate must have an existing
// application into the business.
func (p *ContactPolicy) CheckValidContact(ctx context.Context, other, caller *chat.Account) error {
	candidate, business, ok := splitPair(other, caller)
	if !ok {
		return apperr.Forbidden("conversations may only form between a business and a candidate")
	}

	has, err := p.Accounts.HasApplication(ctx, candidate.ID, business.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !has {
		return apperr.Forbidden("no application relationship between the accounts")
	}
	return nil
}

// CheckBusinessValidContact validates a group creation: every proposed member
// must be a candidate with an existing application into the initiating
// business.
func (p *ContactPolicy) CheckBusinessValidContact(ctx context.Context, members []chat.Account, caller *chat.Account) error {
	if caller.Kind != chat.AccountKindBusiness {
		return apperr.BadRequest("only a business account may create a group conversation")
	}
	for i := range members {
		m := &members[i]
		if m.Kind != chat.AccountKindNormal {
			return apperr.Forbidden(fmt.Sprintf("account %s cannot be added to a group", m.ID))
		}
		has, err := p.Accounts.HasApplication(ctx, m.ID, caller.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if !has {
			return apperr.Forbidden(fmt.Sprintf("no application relationship with account %s", m.ID))
		}
	}
	return nil
}

// splitPair identifies which of the two accounts is the candidate and which
// the business; ok is false when the pair does not cross the boundary.
func splitPair(a, b *chat.Account) (candidate, business *chat.Account, ok bool) {
	switch {
	case a.Kind == chat.AccountKindNormal && b.Kind == chat.AccountKindBusiness:
		return a, b, true
	case a.Kind == chat.AccountKindBusiness && b.Kind == chat.AccountKindNormal:
		return b, a, true
	default:
		return nil, nil, false
	}
}
