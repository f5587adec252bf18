package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/port"
)

type PgAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPgAccountRepository(pool *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{pool: pool}
}

var _ repository.AccountRepository = (*PgAccountRepository)(nil)

func (r *PgAccountRepository) GetByID(ctx context.Context, id string) (*chat.Account, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgAccountRepository: nil pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, full_name, avatar, role, kind
		FROM account.account
		WHERE id = $1::uuid
	`, id)

	var a chat.Account
	err := row.Scan(&a.ID, &a.FullName, &a.Avatar, &a.Role, &a.Kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PgAccountRepository) ListByIDs(ctx context.Context, ids []string) ([]chat.Account, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgAccountRepository: nil pool")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, full_name, avatar, role, kind
		FROM account.account
		WHERE id = ANY($1::uuid[])
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.Account
	for rows.Next() {
		var a chat.Account
		if err := rows.Scan(&a.ID, &a.FullName, &a.Avatar, &a.Role, &a.Kind); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PgAccountRepository) GetByToken(ctx context.Context, token string) (*chat.Account, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgAccountRepository: nil pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT a.id::text, a.full_name, a.avatar, a.role, a.kind
		FROM account.account_token t
		JOIN account.account a ON a.id = t.account_id
		WHERE t.token = $1 AND (t.expires_at IS NULL OR t.expires_at > now())
	`, token)

	var a chat.Account
	err := row.Scan(&a.ID, &a.FullName, &a.Avatar, &a.Role, &a.Kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PgAccountRepository) HasApplication(ctx context.Context, candidateID, businessID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgAccountRepository: nil pool")
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM job.application ap
			JOIN job.campaign ca ON ca.id = ap.campaign_id
			WHERE ap.applicant_id = $1::uuid AND ca.business_id = $2::uuid
		)
	`, candidateID, businessID).Scan(&exists)
	return exists, err
}
