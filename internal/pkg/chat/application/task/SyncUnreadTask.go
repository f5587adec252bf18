package task

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cacheport "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/cache/port"
	qport "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/queue/port"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/adapter"
)

// SyncUnreadTaskType reconciles cached unread counters against storage. The
// cached counters are incremented best-effort on every send; this task trues
// them up from the authoritative last_read_at comparison.
const SyncUnreadTaskType = "chat:sync_unread"

// SyncUnreadTaskPayload names the conversation and the accounts whose
// counters should be recomputed.
type SyncUnreadTaskPayload struct {
	ConversationID string   `json:"conversationId"`
	AccountIDs     []string `json:"accountIds"`
}

// RegisterSyncUnreadTask binds the task handler to the provided server.
func RegisterSyncUnreadTask(srv qport.Server, pool *pgxpool.Pool, cache cacheport.Cache, log *zap.Logger) {
	srv.Register(SyncUnreadTaskType, func(ctx context.Context, t qport.Task) error {
		var p SyncUnreadTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: retrying will not help
			return err
		}

		messages := repoAdapter.NewPgMessageRepository(pool)
		convs := repoAdapter.NewPgConversationRepository(pool)
		counter := usecase.NewUnreadCounter(messages, convs, cache, log)

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		for _, accountID := range p.AccountIDs {
			if _, err := counter.Sync(ctx, accountID, p.ConversationID); err != nil {
				return err
			}
		}
		return nil
	})
}
