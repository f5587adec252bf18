package repository

import (
	"context"

	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
)

// AccountRepository is the read-only identity collaborator. Accounts, tokens
// and job applications are owned by other subsystems; the chat core only
// queries them.
type AccountRepository interface {
	// GetByID returns the account or nil when absent.
	GetByID(ctx context.Context, id string) (*chat.Account, error)

	// ListByIDs returns the accounts for the given ids, order unspecified.
	ListByIDs(ctx context.Context, ids []string) ([]chat.Account, error)

	// GetByToken resolves a bearer credential to its account, nil when the
	// token is unknown or expired.
	GetByToken(ctx context.Context, token string) (*chat.Account, error)

	// HasApplication reports whether the candidate has applied to any campaign
	// owned by the business.
	HasApplication(ctx context.Context, candidateID, businessID string) (bool, error)
}
