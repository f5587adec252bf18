package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	cache "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/cache/port"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
)

// conversationSetTTL bounds how stale the per-account conversation-id cache
// may get before it is rebuilt from storage.
const conversationSetTTL = 12 * time.Hour

func conversationSetKey(accountID string) string {
	return "user:" + accountID + ":conversations"
}

// MembershipService answers "which conversations is this account in" and
// "is this account in this conversation", cache first. The cache is
// best-effort: any cache error is treated as a miss, logged, never propagated.
// Storage remains the source of truth.
type MembershipService struct {
	Convs repository.ConversationRepository
	Cache cache.Cache
	Log   *zap.Logger
}

func NewMembershipService(convs repository.ConversationRepository, c cache.Cache, log *zap.Logger) *MembershipService {
	return &MembershipService{Convs: convs, Cache: c, Log: log}
}

// ConversationIDs resolves the account's conversation ids, trying the cached
// set first and warming it on the way back from storage.
func (s *MembershipService) ConversationIDs(ctx context.Context, accountID string) ([]string, error) {
	key := conversationSetKey(accountID)

	ids, err := s.Cache.SetMembers(ctx, key)
	if err == nil {
		return ids, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.Log.Warn("conversation set cache read failed, treating as miss",
			zap.String("account_id", accountID), zap.Error(err))
	}

	ids, err = s.Convs.ListConversationIDs(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if len(ids) > 0 {
		if err := s.Cache.SetAdd(ctx, key, ids...); err != nil {
			s.Log.Warn("conversation set cache warm failed",
				zap.String("account_id", accountID), zap.Error(err))
		} else if err := s.Cache.Expire(ctx, key, conversationSetTTL); err != nil {
			s.Log.Warn("conversation set cache expire failed",
				zap.String("account_id", accountID), zap.Error(err))
		}
	}
	return ids, nil
}

// IsJoined is the membership gate used before reads/writes on a conversation.
// A cache hit containing the id answers immediately; anything else falls back
// to the storage join query.
func (s *MembershipService) IsJoined(ctx context.Context, conversationID, accountID string) (bool, error) {
	ids, err := s.Cache.SetMembers(ctx, conversationSetKey(accountID))
	if err == nil {
		for _, id := range ids {
			if id == conversationID {
				return true, nil
			}
		}
		// A cached set may predate a freshly created conversation; only
		// storage can say no for sure.
	} else if !errors.Is(err, cache.ErrMiss) {
		s.Log.Warn("conversation set cache read failed, treating as miss",
			zap.String("account_id", accountID), zap.Error(err))
	}

	ok, err := s.Convs.IsMember(ctx, conversationID, accountID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return ok, nil
}

// CachePush adds a conversation id to the account's cached set, best-effort.
func (s *MembershipService) CachePush(ctx context.Context, accountID, conversationID string) {
	key := conversationSetKey(accountID)
	if err := s.Cache.SetAdd(ctx, key, conversationID); err != nil {
		s.Log.Warn("conversation set cache push failed",
			zap.String("account_id", accountID), zap.Error(err))
		return
	}
	if err := s.Cache.Expire(ctx, key, conversationSetTTL); err != nil {
		s.Log.Warn("conversation set cache expire failed",
			zap.String("account_id", accountID), zap.Error(err))
	}
}
