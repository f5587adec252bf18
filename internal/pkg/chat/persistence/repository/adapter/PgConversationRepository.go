package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
)

type PgConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

var _ repository.ConversationRepository = (*PgConversationRepository)(nil)

func (r *PgConversationRepository) CreateConversation(ctx context.Context, c chat.Conversation, members []chat.Member) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgConversationRepository: nil pool")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO chat.conversation (kind, name, avatar, count_member, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id::text
	`, c.Kind, c.Name, c.Avatar, len(members), c.CreatedAt).Scan(&id)
	if err != nil {
		return "", err
	}

	for _, m := range members {
		_, err = tx.Exec(ctx, `
			INSERT INTO chat.conversation_member (conversation_id, account_id, kind, nickname, created_at)
			VALUES ($1::uuid, $2::uuid, $3, $4, $5)
		`, id, m.AccountID, m.Kind, m.Nickname, c.CreatedAt)
		if err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// FindByExactMembers uses an order-independent exact-set lookup: conversations
// whose member rows all fall inside accountIDs, match len(accountIDs) of them,
// and have count_member equal to the set size.
func (r *PgConversationRepository) FindByExactMembers(ctx context.Context, accountIDs []string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgConversationRepository: nil pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT c.id::text, c.kind, c.name, c.avatar, c.count_member, c.created_at, c.updated_at
		FROM chat.conversation c
		JOIN chat.conversation_member m ON m.conversation_id = c.id
		WHERE m.account_id = ANY($1::uuid[]) AND c.count_member = $2
		GROUP BY c.id
		HAVING COUNT(*) = $2
		LIMIT 1
	`, accountIDs, len(accountIDs))

	var c chat.Conversation
	err := row.Scan(&c.ID, &c.Kind, &c.Name, &c.Avatar, &c.CountMember, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgConversationRepository) GetByID(ctx context.Context, id string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgConversationRepository: nil pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, kind, name, avatar, count_member, created_at, updated_at
		FROM chat.conversation
		WHERE id = $1::uuid
	`, id)

	var c chat.Conversation
	err := row.Scan(&c.ID, &c.Kind, &c.Name, &c.Avatar, &c.CountMember, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgConversationRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgConversationRepository: nil pool")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `
		SELECT c.id::text, c.kind, c.name, c.avatar, c.count_member, c.created_at, c.updated_at
		FROM chat.conversation c
		JOIN chat.conversation_member m ON m.conversation_id = c.id
		WHERE m.account_id = $1::uuid
		ORDER BY c.updated_at DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.Conversation
	for rows.Next() {
		var c chat.Conversation
		if err := rows.Scan(&c.ID, &c.Kind, &c.Name, &c.Avatar, &c.CountMember, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PgConversationRepository) ListConversationIDs(ctx context.Context, accountID string) ([]string, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgConversationRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT conversation_id::text
		FROM chat.conversation_member
		WHERE account_id = $1::uuid
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgConversationRepository) IsMember(ctx context.Context, conversationID, accountID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgConversationRepository: nil pool")
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat.conversation_member
			WHERE conversation_id = $1::uuid AND account_id = $2::uuid
		)
	`, conversationID, accountID).Scan(&exists)
	return exists, err
}

func (r *PgConversationRepository) ListMembers(ctx context.Context, conversationID string, limit int) ([]chat.MemberProfile, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgConversationRepository: nil pool")
	}
	q := `
		SELECT a.id::text, a.full_name, a.avatar, a.role, a.kind, m.kind, m.nickname
		FROM chat.conversation_member m
		JOIN account.account a ON a.id = m.account_id
		WHERE m.conversation_id = $1::uuid
		ORDER BY CASE m.kind WHEN 'admin' THEN 0 WHEN 'member' THEN 1 ELSE 2 END, m.created_at
	`
	args := []any{conversationID}
	if limit > 0 {
		q += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.MemberProfile
	for rows.Next() {
		var p chat.MemberProfile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Avatar, &p.Role, &p.Kind, &p.MemberKind, &p.Nickname); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PgConversationRepository) UpdateConversation(ctx context.Context, id string, name, avatar *string) error {
	if r == nil || r.pool == nil {
		return errors.New("PgConversationRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.conversation
		SET name = COALESCE($2, name),
		    avatar = COALESCE($3, avatar),
		    updated_at = now()
		WHERE id = $1::uuid
	`, id, name, avatar)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgConversationRepository) SetLastRead(ctx context.Context, conversationID, accountID string, at time.Time) error {
	if r == nil || r.pool == nil {
		return errors.New("PgConversationRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.conversation_member
		SET last_read_at = $3
		WHERE conversation_id = $1::uuid AND account_id = $2::uuid
	`, conversationID, accountID, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
