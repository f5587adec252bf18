package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"go.uber.org/zap"

	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/testsupport"
)

func newSendUC(s *testsupport.Store, c *testsupport.Cache) (*usecase.SendMessageUseCase, *usecase.UnreadCounter) {
	unread := usecase.NewUnreadCounter(s.Messages(), s.Conversations(), c, zap.NewNop())
	return usecase.NewSendMessageUseCase(s.Conversations(), s.Messages(), unread), unread
}

// seedPrivate creates the pair plus their private conversation directly in
// the store and returns the conversation id.
func seedPrivate(t *testing.T, s *testsupport.Store) (candidate, business chat.Account, convID string) {
	t.Helper()
	candidate, business = seedPair(s)
	id, err := s.Conversations().CreateConversation(context.Background(),
		chat.Conversation{Kind: chat.ConversationKindPrivate},
		[]chat.Member{
			{AccountID: candidate.ID, Kind: chat.MemberKindMember},
			{AccountID: business.ID, Kind: chat.MemberKindMember},
		})
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	return candidate, business, id
}

func TestSendMessageRejectsReply(t *testing.T) {
	store := testsupport.NewStore()
	candidate, _, convID := seedPrivate(t, store)
	uc, _ := newSendUC(store, testsupport.NewCache())

	parent := "msg-1"
	_, err := uc.Execute(context.Background(), usecase.SendMessageInput{
		Caller:         &candidate,
		ConversationID: convID,
		Content:        "hello",
		ParentID:       &parent,
	})
	wantCode(t, err, http.StatusBadRequest)
}

func TestSendMessageRequiresMembership(t *testing.T) {
	store := testsupport.NewStore()
	_, _, convID := seedPrivate(t, store)
	outsider := store.AddAccount(chat.Account{FullName: "Outsider", Kind: chat.AccountKindNormal})
	uc, _ := newSendUC(store, testsupport.NewCache())

	_, err := uc.Execute(context.Background(), usecase.SendMessageInput{
		Caller:         &outsider,
		ConversationID: convID,
		Content:        "let me in",
	})
	wantCode(t, err, http.StatusForbidden)
	if store.MessageCount() != 0 {
		t.Fatal("nothing should be persisted for a non-member")
	}
}

func TestSendMessageRejectsBlankContent(t *testing.T) {
	store := testsupport.NewStore()
	candidate, _, convID := seedPrivate(t, store)
	uc, _ := newSendUC(store, testsupport.NewCache())

	_, err := uc.Execute(context.Background(), usecase.SendMessageInput{
		Caller:         &candidate,
		ConversationID: convID,
		Content:        "   ",
	})
	wantCode(t, err, http.StatusBadRequest)
}

func TestSendMessageBumpsRecipientsUnread(t *testing.T) {
	store := testsupport.NewStore()
	cache := testsupport.NewCache()
	candidate, business, convID := seedPrivate(t, store)
	uc, unread := newSendUC(store, cache)
	ctx := context.Background()

	out, err := uc.Execute(ctx, usecase.SendMessageInput{
		Caller:         &candidate,
		ConversationID: convID,
		Content:        "hello there",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(out.RecipientIDs) != 1 || out.RecipientIDs[0] != business.ID {
		t.Fatalf("expected recipients [%s], got %v", business.ID, out.RecipientIDs)
	}
	if out.Message.Content == nil || *out.Message.Content != "hello there" {
		t.Fatalf("unexpected message content: %v", out.Message.Content)
	}

	n, err := unread.Get(ctx, business.ID, convID)
	if err != nil {
		t.Fatalf("unread get: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 unread for the recipient, got %d", n)
	}

	// The sender's own counter is untouched.
	n, err = unread.Get(ctx, candidate.ID, convID)
	if err != nil {
		t.Fatalf("unread get: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 unread for the sender, got %d", n)
	}
}

func TestUnreadResetAdvancesWatermark(t *testing.T) {
	store := testsupport.NewStore()
	cache := testsupport.NewCache()
	candidate, business, convID := seedPrivate(t, store)
	uc, unread := newSendUC(store, cache)
	ctx := context.Background()

	if _, err := uc.Execute(ctx, usecase.SendMessageInput{
		Caller: &candidate, ConversationID: convID, Content: "one",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := uc.Execute(ctx, usecase.SendMessageInput{
		Caller: &candidate, ConversationID: convID, Content: "two",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := unread.Reset(ctx, business.ID, convID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	member := store.MemberOf(convID, business.ID)
	if member == nil || member.LastReadAt == nil {
		t.Fatal("expected last_read_at to be set after reset")
	}

	n, err := unread.Get(ctx, business.ID, convID)
	if err != nil {
		t.Fatalf("unread get: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 unread after reset, got %d", n)
	}
}

func TestUnreadGetSurvivesCacheOutage(t *testing.T) {
	store := testsupport.NewStore()
	cache := testsupport.NewCache()
	candidate, business, convID := seedPrivate(t, store)
	uc, unread := newSendUC(store, cache)
	ctx := context.Background()

	if _, err := uc.Execute(ctx, usecase.SendMessageInput{
		Caller: &candidate, ConversationID: convID, Content: "hello",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	cache.Fail = context.DeadlineExceeded
	n, err := unread.Get(ctx, business.ID, convID)
	if err != nil {
		t.Fatalf("unread get with broken cache: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected storage-computed count 1, got %d", n)
	}
}
