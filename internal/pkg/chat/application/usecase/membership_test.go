package usecase_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/testsupport"
)

func TestConversationIDsReadThroughWarmsCache(t *testing.T) {
	store := testsupport.NewStore()
	cache := testsupport.NewCache()
	candidate, _, convID := seedPrivate(t, store)
	svc := usecase.NewMembershipService(store.Conversations(), cache, zap.NewNop())
	ctx := context.Background()

	ids, err := svc.ConversationIDs(ctx, candidate.ID)
	if err != nil {
		t.Fatalf("conversation ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != convID {
		t.Fatalf("expected [%s], got %v", convID, ids)
	}

	// The set is now cached under the account's key.
	cached, err := cache.SetMembers(ctx, "user:"+candidate.ID+":conversations")
	if err != nil {
		t.Fatalf("expected warmed cache, got %v", err)
	}
	if len(cached) != 1 || cached[0] != convID {
		t.Fatalf("expected cached [%s], got %v", convID, cached)
	}
}

func TestIsJoinedCacheHitSkipsStorage(t *testing.T) {
	store := testsupport.NewStore()
	cache := testsupport.NewCache()
	acc := store.AddAccount(chat.Account{FullName: "Cached Only", Kind: chat.AccountKindNormal})
	svc := usecase.NewMembershipService(store.Conversations(), cache, zap.NewNop())
	ctx := context.Background()

	// Storage knows nothing about this conversation; only the cache does.
	svc.CachePush(ctx, acc.ID, "conv-cached")

	ok, err := svc.IsJoined(ctx, "conv-cached", acc.ID)
	if err != nil {
		t.Fatalf("is joined: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit to answer membership")
	}
}

func TestIsJoinedStaleCacheFallsBackToStorage(t *testing.T) {
	store := testsupport.NewStore()
	cache := testsupport.NewCache()
	candidate, _, convID := seedPrivate(t, store)
	svc := usecase.NewMembershipService(store.Conversations(), cache, zap.NewNop())
	ctx := context.Background()

	// Cache holds a different conversation: the set predates convID.
	svc.CachePush(ctx, candidate.ID, "conv-old")

	ok, err := svc.IsJoined(ctx, convID, candidate.ID)
	if err != nil {
		t.Fatalf("is joined: %v", err)
	}
	if !ok {
		t.Fatal("expected storage to confirm membership the cache missed")
	}
}

func TestIsJoinedDeniesNonMember(t *testing.T) {
	store := testsupport.NewStore()
	cache := testsupport.NewCache()
	_, _, convID := seedPrivate(t, store)
	outsider := store.AddAccount(chat.Account{FullName: "Outsider", Kind: chat.AccountKindNormal})
	svc := usecase.NewMembershipService(store.Conversations(), cache, zap.NewNop())

	ok, err := svc.IsJoined(context.Background(), convID, outsider.ID)
	if err != nil {
		t.Fatalf("is joined: %v", err)
	}
	if ok {
		t.Fatal("expected non-member to be denied")
	}
}

func TestConversationIDsSurvivesCacheOutage(t *testing.T) {
	store := testsupport.NewStore()
	cache := testsupport.NewCache()
	candidate, _, convID := seedPrivate(t, store)
	svc := usecase.NewMembershipService(store.Conversations(), cache, zap.NewNop())

	cache.Fail = context.DeadlineExceeded
	ids, err := svc.ConversationIDs(context.Background(), candidate.ID)
	if err != nil {
		t.Fatalf("conversation ids with broken cache: %v", err)
	}
	if len(ids) != 1 || ids[0] != convID {
		t.Fatalf("expected [%s], got %v", convID, ids)
	}
}
