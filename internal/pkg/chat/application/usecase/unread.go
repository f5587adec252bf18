package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	cache "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/cache/port"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
)

const unreadTTL = 24 * time.Hour

func unreadKey(accountID string) string {
	return "user:" + accountID + ":unread"
}

// UnreadCounter keeps per-(account, conversation) unread counts in a cache
// hash. The counter is never the source of truth: the authoritative value is
// derivable from last_read_at vs message timestamps, which CountUnread
// computes. The cache path only avoids repeating that query.
type UnreadCounter struct {
	Messages repository.MessageRepository
	Convs    repository.ConversationRepository
	Cache    cache.Cache
	Log      *zap.Logger
}

func NewUnreadCounter(messages repository.MessageRepository, convs repository.ConversationRepository, c cache.Cache, log *zap.Logger) *UnreadCounter {
	return &UnreadCounter{Messages: messages, Convs: convs, Cache: c, Log: log}
}

// Increase bumps the cached counter, best-effort.
func (u *UnreadCounter) Increase(ctx context.Context, accountID, conversationID string) {
	key := unreadKey(accountID)
	if _, err := u.Cache.HashIncr(ctx, key, conversationID, 1); err != nil {
		u.Log.Warn("unread counter increase failed",
			zap.String("account_id", accountID), zap.Error(err))
		return
	}
	if err := u.Cache.Expire(ctx, key, unreadTTL); err != nil {
		u.Log.Warn("unread counter expire failed",
			zap.String("account_id", accountID), zap.Error(err))
	}
}

// Reset advances the member's read watermark in storage, then zeroes the
// cached counter best-effort. The storage write is the part that matters.
func (u *UnreadCounter) Reset(ctx context.Context, accountID, conversationID string) error {
	if err := u.Convs.SetLastRead(ctx, conversationID, accountID, time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := u.Cache.HashSet(ctx, unreadKey(accountID), conversationID, "0"); err != nil {
		u.Log.Warn("unread counter reset failed",
			zap.String("account_id", accountID), zap.Error(err))
	}
	return nil
}

// Get returns the unread count, cache first, recomputing from storage on a
// miss and warming the cache on the way back.
func (u *UnreadCounter) Get(ctx context.Context, accountID, conversationID string) (int, error) {
	raw, err := u.Cache.HashGet(ctx, unreadKey(accountID), conversationID)
	if err == nil {
		if n, perr := strconv.Atoi(raw); perr == nil {
			return n, nil
		}
		u.Log.Warn("unread counter holds a non-numeric value, recomputing",
			zap.String("account_id", accountID), zap.String("value", raw))
	} else if !errors.Is(err, cache.ErrMiss) {
		u.Log.Warn("unread counter read failed, treating as miss",
			zap.String("account_id", accountID), zap.Error(err))
	}

	return u.Sync(ctx, accountID, conversationID)
}

// Sync recomputes the count from storage and repairs the cached value.
func (u *UnreadCounter) Sync(ctx context.Context, accountID, conversationID string) (int, error) {
	n, err := u.Messages.CountUnread(ctx, conversationID, accountID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	key := unreadKey(accountID)
	if err := u.Cache.HashSet(ctx, key, conversationID, strconv.Itoa(n)); err != nil {
		u.Log.Warn("unread counter warm failed",
			zap.String("account_id", accountID), zap.Error(err))
	} else if err := u.Cache.Expire(ctx, key, unreadTTL); err != nil {
		u.Log.Warn("unread counter expire failed",
			zap.String("account_id", accountID), zap.Error(err))
	}
	return n, nil
}
