package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
)

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

var _ repository.MessageRepository = (*PgMessageRepository)(nil)

const messageColumns = `id::text, conversation_id::text, account_id::text, type, content,
	parent_id::text, count_like, count_dislike, is_pinned, created_at, updated_at, deleted_at`

func scanMessage(row pgx.Row) (*chat.Message, error) {
	var m chat.Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.AccountID, &m.Type, &m.Content,
		&m.ParentID, &m.CountLike, &m.CountDislike, &m.IsPinned, &m.CreatedAt, &m.UpdatedAt, &m.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgMessageRepository) SaveMessage(ctx context.Context, m chat.Message) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgMessageRepository: nil pool")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO chat.message (conversation_id, account_id, type, content, parent_id, created_at, updated_at)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5::uuid, $6, $6)
		RETURNING id::text
	`, m.ConversationID, m.AccountID, m.Type, m.Content, m.ParentID, m.CreatedAt).Scan(&id)
	if err != nil {
		return "", err
	}
	// Keep the conversation's activity watermark current for list ordering.
	_, err = tx.Exec(ctx, `
		UPDATE chat.conversation SET updated_at = $2 WHERE id = $1::uuid
	`, m.ConversationID, m.CreatedAt)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *PgMessageRepository) GetByID(ctx context.Context, id string) (*chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessageRepository: nil pool")
	}
	m, err := scanMessage(r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM chat.message
		WHERE id = $1::uuid AND deleted_at IS NULL
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *PgMessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessageRepository: nil pool")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM chat.message
		WHERE conversation_id = $1::uuid AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

func (r *PgMessageRepository) LastMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessageRepository: nil pool")
	}
	m, err := scanMessage(r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM chat.message
		WHERE conversation_id = $1::uuid AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, conversationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *PgMessageRepository) SaveImages(ctx context.Context, messageID string, urls []string) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessageRepository: nil pool")
	}
	for i, url := range urls {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO chat.message_image (message_id, url, position)
			VALUES ($1::uuid, $2, $3)
		`, messageID, url, i)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *PgMessageRepository) ImagesFor(ctx context.Context, messageIDs []string) (map[string][]chat.MessageImage, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessageRepository: nil pool")
	}
	out := make(map[string][]chat.MessageImage)
	if len(messageIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, message_id::text, url, position
		FROM chat.message_image
		WHERE message_id = ANY($1::uuid[])
		ORDER BY message_id, position
	`, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var img chat.MessageImage
		if err := rows.Scan(&img.ID, &img.MessageID, &img.URL, &img.Position); err != nil {
			return nil, err
		}
		out[img.MessageID] = append(out[img.MessageID], img)
	}
	return out, rows.Err()
}

func (r *PgMessageRepository) ReactionsFor(ctx context.Context, accountID string, messageIDs []string) (map[string]string, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessageRepository: nil pool")
	}
	out := make(map[string]string)
	if len(messageIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT message_id::text, kind
		FROM chat.message_reaction
		WHERE account_id = $1::uuid AND message_id = ANY($2::uuid[])
	`, accountID, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var messageID, kind string
		if err := rows.Scan(&messageID, &kind); err != nil {
			return nil, err
		}
		out[messageID] = kind
	}
	return out, rows.Err()
}

func (r *PgMessageRepository) SetReaction(ctx context.Context, messageID, accountID, kind string) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessageRepository: nil pool")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var prev *string
	err = tx.QueryRow(ctx, `
		SELECT kind FROM chat.message_reaction
		WHERE message_id = $1::uuid AND account_id = $2::uuid
		FOR UPDATE
	`, messageID, accountID).Scan(&prev)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if prev != nil && *prev == kind {
		return tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO chat.message_reaction (message_id, account_id, kind)
		VALUES ($1::uuid, $2::uuid, $3)
		ON CONFLICT (message_id, account_id)
		DO UPDATE SET kind = EXCLUDED.kind
	`, messageID, accountID, kind)
	if err != nil {
		return err
	}
	// count_like/count_dislike denormalize the reaction table; a swap moves
	// one count from the previous kind to the new one.
	if prev != nil {
		if _, err = tx.Exec(ctx, reactionCounterSQL(*prev, -1), messageID); err != nil {
			return err
		}
	}
	if _, err = tx.Exec(ctx, reactionCounterSQL(kind, +1), messageID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func reactionCounterSQL(kind string, delta int) string {
	column := "count_like"
	if kind == "DISLIKE" {
		column = "count_dislike"
	}
	if delta < 0 {
		return `UPDATE chat.message SET ` + column + ` = GREATEST(` + column + ` - 1, 0) WHERE id = $1::uuid`
	}
	return `UPDATE chat.message SET ` + column + ` = ` + column + ` + 1 WHERE id = $1::uuid`
}

func (r *PgMessageRepository) Pin(ctx context.Context, conversationID, messageID, accountID string) error {
	if r == nil || r.pool == nil {
		return errors.New("PgMessageRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat.pinned_message (conversation_id, message_id, account_id, created_at)
		VALUES ($1::uuid, $2::uuid, $3::uuid, now())
		ON CONFLICT (conversation_id, message_id) DO NOTHING
	`, conversationID, messageID, accountID)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE chat.message SET is_pinned = TRUE WHERE id = $1::uuid
	`, messageID)
	return err
}

func (r *PgMessageRepository) ListPinned(ctx context.Context, conversationID string) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessageRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT m.id::text, m.conversation_id::text, m.account_id::text, m.type, m.content,
			m.parent_id::text, m.count_like, m.count_dislike, m.is_pinned, m.created_at, m.updated_at, m.deleted_at
		FROM chat.pinned_message p
		JOIN chat.message m ON m.id = p.message_id
		WHERE p.conversation_id = $1::uuid AND m.deleted_at IS NULL
		ORDER BY p.created_at DESC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

func (r *PgMessageRepository) CountUnread(ctx context.Context, conversationID, accountID string) (int, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New("PgMessageRepository: nil pool")
	}
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM chat.message m
		JOIN chat.conversation_member cm
		  ON cm.conversation_id = m.conversation_id AND cm.account_id = $2::uuid
		WHERE m.conversation_id = $1::uuid
		  AND m.deleted_at IS NULL
		  AND m.account_id <> $2::uuid
		  AND (cm.last_read_at IS NULL OR m.created_at > cm.last_read_at)
	`, conversationID, accountID).Scan(&count)
	return count, err
}
