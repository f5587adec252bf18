package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/apperr"
	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/testsupport"
)

func newCreateUC(s *testsupport.Store) *usecase.CreateConversationUseCase {
	return usecase.NewCreateConversationUseCase(s.Conversations(), s.Messages(), s.Accounts())
}

func seedPair(s *testsupport.Store) (candidate, business chat.Account) {
	candidate = s.AddAccount(chat.Account{ID: "u1", FullName: "Nguyen Van A", Kind: chat.AccountKindNormal})
	business = s.AddAccount(chat.Account{ID: "b1", FullName: "ACME Corp", Kind: chat.AccountKindBusiness})
	s.AddApplication(candidate.ID, business.ID)
	return candidate, business
}

func wantCode(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	ae, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected apperr, got %v", err)
	}
	if ae.Code != code {
		t.Fatalf("expected code %d, got %d (%s)", code, ae.Code, ae.Message)
	}
}

func TestPrivateConversationIsUniquePerPair(t *testing.T) {
	store := testsupport.NewStore()
	candidate, business := seedPair(store)
	uc := newCreateUC(store)
	ctx := context.Background()

	first, err := uc.Execute(ctx, usecase.CreateConversationInput{
		Caller:    &candidate,
		MemberIDs: []string{business.ID},
	})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if !first.Created {
		t.Fatal("expected first call to create")
	}
	if first.Conversation.Kind != chat.ConversationKindPrivate {
		t.Fatalf("expected PRIVATE, got %s", first.Conversation.Kind)
	}
	if first.Conversation.CountMember != 2 {
		t.Fatalf("expected 2 members, got %d", first.Conversation.CountMember)
	}

	// Same pair from the other side resolves, never duplicates.
	second, err := uc.Execute(ctx, usecase.CreateConversationInput{
		Caller:    &business,
		MemberIDs: []string{candidate.ID},
	})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.Created {
		t.Fatal("expected second call to resolve the existing conversation")
	}
	if second.Conversation.ID != first.Conversation.ID {
		t.Fatalf("expected same conversation, got %s and %s", first.Conversation.ID, second.Conversation.ID)
	}
	if store.ConversationCount() != 1 {
		t.Fatalf("expected exactly one conversation, got %d", store.ConversationCount())
	}
}

func TestPrivateConversationRequiresApplication(t *testing.T) {
	store := testsupport.NewStore()
	candidate := store.AddAccount(chat.Account{FullName: "No Application", Kind: chat.AccountKindNormal})
	business := store.AddAccount(chat.Account{FullName: "ACME Corp", Kind: chat.AccountKindBusiness})
	uc := newCreateUC(store)

	_, err := uc.Execute(context.Background(), usecase.CreateConversationInput{
		Caller:    &candidate,
		MemberIDs: []string{business.ID},
	})
	wantCode(t, err, http.StatusForbidden)
	if store.ConversationCount() != 0 {
		t.Fatal("no conversation should exist after a rejected create")
	}
}

func TestPrivateConversationRejectsSameKindPair(t *testing.T) {
	store := testsupport.NewStore()
	a := store.AddAccount(chat.Account{FullName: "A", Kind: chat.AccountKindNormal})
	b := store.AddAccount(chat.Account{FullName: "B", Kind: chat.AccountKindNormal})
	uc := newCreateUC(store)

	_, err := uc.Execute(context.Background(), usecase.CreateConversationInput{
		Caller:    &a,
		MemberIDs: []string{b.ID},
	})
	wantCode(t, err, http.StatusForbidden)
}

func TestGroupRequiresBusinessInitiator(t *testing.T) {
	store := testsupport.NewStore()
	caller := store.AddAccount(chat.Account{FullName: "Candidate", Kind: chat.AccountKindNormal})
	m1 := store.AddAccount(chat.Account{FullName: "M1", Kind: chat.AccountKindNormal})
	m2 := store.AddAccount(chat.Account{FullName: "M2", Kind: chat.AccountKindNormal})
	uc := newCreateUC(store)

	_, err := uc.Execute(context.Background(), usecase.CreateConversationInput{
		Caller:    &caller,
		MemberIDs: []string{m1.ID, m2.ID},
	})
	wantCode(t, err, http.StatusBadRequest)
}

func TestGroupRejectsMemberWithoutApplication(t *testing.T) {
	store := testsupport.NewStore()
	business := store.AddAccount(chat.Account{FullName: "ACME Corp", Kind: chat.AccountKindBusiness})
	applied := store.AddAccount(chat.Account{FullName: "Applied", Kind: chat.AccountKindNormal})
	stranger := store.AddAccount(chat.Account{FullName: "Stranger", Kind: chat.AccountKindNormal})
	store.AddApplication(applied.ID, business.ID)
	uc := newCreateUC(store)

	_, err := uc.Execute(context.Background(), usecase.CreateConversationInput{
		Caller:    &business,
		MemberIDs: []string{applied.ID, stranger.ID},
	})
	wantCode(t, err, http.StatusForbidden)
	if store.ConversationCount() != 0 {
		t.Fatal("nothing should be created when any member fails the gate")
	}
}

func TestGroupCreatedWithAdminCallerAndDefaultName(t *testing.T) {
	store := testsupport.NewStore()
	business := store.AddAccount(chat.Account{FullName: "ACME Corp", Kind: chat.AccountKindBusiness})
	m1 := store.AddAccount(chat.Account{FullName: "Nguyen Van A", Kind: chat.AccountKindNormal})
	m2 := store.AddAccount(chat.Account{FullName: "Tran Thi B", Kind: chat.AccountKindNormal})
	store.AddApplication(m1.ID, business.ID)
	store.AddApplication(m2.ID, business.ID)
	uc := newCreateUC(store)

	out, err := uc.Execute(context.Background(), usecase.CreateConversationInput{
		Caller:    &business,
		MemberIDs: []string{m1.ID, m2.ID},
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if out.Conversation.Kind != chat.ConversationKindGroup {
		t.Fatalf("expected GROUP, got %s", out.Conversation.Kind)
	}
	if out.Conversation.CountMember != 3 {
		t.Fatalf("expected 3 members, got %d", out.Conversation.CountMember)
	}

	member := store.MemberOf(out.Conversation.ID, business.ID)
	if member == nil || member.Kind != chat.MemberKindAdmin {
		t.Fatalf("expected the initiator to be admin, got %+v", member)
	}

	want := chat.DefaultGroupName([]chat.Account{m1, m2})
	if out.Conversation.Name == nil || *out.Conversation.Name != want {
		t.Fatalf("expected name %q, got %v", want, out.Conversation.Name)
	}
}

func TestCreateRejectsCallerOnlyMemberList(t *testing.T) {
	store := testsupport.NewStore()
	caller := store.AddAccount(chat.Account{FullName: "Solo", Kind: chat.AccountKindNormal})
	uc := newCreateUC(store)

	_, err := uc.Execute(context.Background(), usecase.CreateConversationInput{
		Caller:    &caller,
		MemberIDs: []string{caller.ID, "", caller.ID},
	})
	wantCode(t, err, http.StatusNotFound)
}
