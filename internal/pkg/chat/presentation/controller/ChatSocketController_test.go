package controller

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	pubsubAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/pubsub/adapter"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/realtime"
	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/testsupport"
)

// socketHarness wires the socket controller onto fakes and an in-memory
// broker, exposing a dialable httptest server.
type socketHarness struct {
	store    *testsupport.Store
	cache    *testsupport.Cache
	registry *realtime.Registry
	server   *httptest.Server
}

func newSocketHarness(t *testing.T) *socketHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testsupport.NewStore()
	cache := testsupport.NewCache()
	broker := pubsubAdapter.NewMemoryBroker()
	registry := realtime.NewRegistry(broker, zap.NewNop())

	convs := store.Conversations()
	messages := store.Messages()
	unread := usecase.NewUnreadCounter(messages, convs, cache, zap.NewNop())
	ctl := newChatSocketController(
		registry,
		usecase.NewMembershipService(convs, cache, zap.NewNop()),
		usecase.NewCreateConversationUseCase(convs, messages, store.Accounts()),
		usecase.NewSendMessageUseCase(convs, messages, unread),
		unread,
		nil,
		zap.NewNop(),
	)

	r := gin.New()
	r.GET("/ws", RequireAccount(store.Accounts()), ctl.Handle())
	server := httptest.NewServer(r)

	t.Cleanup(func() {
		server.Close()
		registry.Close()
		broker.Close()
	})
	return &socketHarness{store: store, cache: cache, registry: registry, server: server}
}

func (h *socketHarness) dial(t *testing.T, accountID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws?token=tok-" + accountID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial as %s: %v", accountID, err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

type receivedFrame struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
}

func readFrame(t *testing.T, ws *websocket.Conn) receivedFrame {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var f receivedFrame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decode frame %q: %v", data, err)
	}
	return f
}

func sendFrame(t *testing.T, ws *websocket.Conn, frameType string, data any) {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"type": frameType, "data": data})
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func TestSocketRejectsMalformedFramesAndStaysOpen(t *testing.T) {
	h := newSocketHarness(t)
	acc := h.store.AddAccount(chat.Account{ID: "u1", FullName: "User", Kind: chat.AccountKindNormal})
	ws := h.dial(t, acc.ID)

	// Not JSON at all.
	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f := readFrame(t, ws); f.Status != "error" {
		t.Fatalf("expected error frame, got %+v", f)
	}

	// JSON without a type.
	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"data":{}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f := readFrame(t, ws); f.Status != "error" {
		t.Fatalf("expected error frame, got %+v", f)
	}

	// Unknown action type.
	sendFrame(t, ws, "DANCE", map[string]any{})
	if f := readFrame(t, ws); f.Status != "error" || f.Message != "unknown action type" {
		t.Fatalf("expected unknown action error, got %+v", f)
	}

	// The session is still usable afterwards.
	sendFrame(t, ws, "TYPING", map[string]any{"conversation_id": "missing"})
	if f := readFrame(t, ws); f.Status != "error" {
		t.Fatalf("expected membership error frame, got %+v", f)
	}
}

func TestSocketNewMessageCreatesConversationAndDelivers(t *testing.T) {
	h := newSocketHarness(t)
	candidate := h.store.AddAccount(chat.Account{ID: "u1", FullName: "Candidate", Kind: chat.AccountKindNormal})
	business := h.store.AddAccount(chat.Account{ID: "b1", FullName: "ACME Corp", Kind: chat.AccountKindBusiness})
	h.store.AddApplication(candidate.ID, business.ID)

	wsCandidate := h.dial(t, candidate.ID)
	wsBusiness := h.dial(t, business.ID)

	sendFrame(t, wsCandidate, "NEW_MESSAGE", map[string]any{
		"members": []string{business.ID},
		"content": "hello, I applied",
	})

	// Both sides first see the conversation, then the message.
	for _, ws := range []*websocket.Conn{wsCandidate, wsBusiness} {
		convFrame := readFrame(t, ws)
		if convFrame.Type != "NEW_CONVERSATION" {
			t.Fatalf("expected NEW_CONVERSATION first, got %+v", convFrame)
		}
		msgFrame := readFrame(t, ws)
		if msgFrame.Type != "NEW_MESSAGE" {
			t.Fatalf("expected NEW_MESSAGE second, got %+v", msgFrame)
		}
		var msg struct {
			Content *string `json:"content"`
		}
		if err := json.Unmarshal(msgFrame.Data, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		if msg.Content == nil || *msg.Content != "hello, I applied" {
			t.Fatalf("unexpected content: %v", msg.Content)
		}
	}

	if h.store.ConversationCount() != 1 {
		t.Fatalf("expected one conversation, got %d", h.store.ConversationCount())
	}

	// A second send with the conversation id appends without creating again.
	convID := firstConversationID(t, h.store, candidate.ID)
	sendFrame(t, wsCandidate, "NEW_MESSAGE", map[string]any{
		"conversation_id": convID,
		"content":         "second",
	})
	for _, ws := range []*websocket.Conn{wsCandidate, wsBusiness} {
		f := readFrame(t, ws)
		if f.Type != "NEW_MESSAGE" {
			t.Fatalf("expected only NEW_MESSAGE, got %+v", f)
		}
	}
	if h.store.ConversationCount() != 1 {
		t.Fatalf("conversation was duplicated: %d", h.store.ConversationCount())
	}
	if h.store.MessageCount() != 2 {
		t.Fatalf("expected two messages, got %d", h.store.MessageCount())
	}
}

func TestSocketNewMessageForbiddenLeavesNothingBehind(t *testing.T) {
	h := newSocketHarness(t)
	business := h.store.AddAccount(chat.Account{ID: "b2", FullName: "Other Corp", Kind: chat.AccountKindBusiness})
	applied := h.store.AddAccount(chat.Account{ID: "u1", FullName: "Applied", Kind: chat.AccountKindNormal})
	stranger := h.store.AddAccount(chat.Account{ID: "u2", FullName: "Stranger", Kind: chat.AccountKindNormal})
	h.store.AddApplication(applied.ID, business.ID)

	ws := h.dial(t, business.ID)
	sendFrame(t, ws, "NEW_MESSAGE", map[string]any{
		"members": []string{applied.ID, stranger.ID},
		"content": "join my group",
	})

	f := readFrame(t, ws)
	if f.Status != "error" {
		t.Fatalf("expected error frame, got %+v", f)
	}
	if h.store.ConversationCount() != 0 || h.store.MessageCount() != 0 {
		t.Fatalf("expected nothing persisted, got %d conversations %d messages",
			h.store.ConversationCount(), h.store.MessageCount())
	}
}

func TestSocketTypingRelaysToMembersOnly(t *testing.T) {
	h := newSocketHarness(t)
	candidate := h.store.AddAccount(chat.Account{ID: "u1", FullName: "Candidate", Kind: chat.AccountKindNormal})
	business := h.store.AddAccount(chat.Account{ID: "b1", FullName: "ACME Corp", Kind: chat.AccountKindBusiness})
	h.store.AddApplication(candidate.ID, business.ID)

	wsCandidate := h.dial(t, candidate.ID)
	wsBusiness := h.dial(t, business.ID)

	sendFrame(t, wsCandidate, "NEW_MESSAGE", map[string]any{
		"members": []string{business.ID},
		"content": "hi",
	})
	readFrame(t, wsCandidate) // NEW_CONVERSATION
	readFrame(t, wsCandidate) // NEW_MESSAGE
	readFrame(t, wsBusiness)
	readFrame(t, wsBusiness)

	convID := firstConversationID(t, h.store, candidate.ID)
	sendFrame(t, wsCandidate, "TYPING", map[string]any{"conversation_id": convID})

	f := readFrame(t, wsBusiness)
	if f.Type != "USER_TYPING" {
		t.Fatalf("expected USER_TYPING, got %+v", f)
	}
	var data struct {
		ConversationID string `json:"conversation_id"`
		Account        struct {
			ID string `json:"id"`
		} `json:"account"`
	}
	if err := json.Unmarshal(f.Data, &data); err != nil {
		t.Fatalf("decode typing: %v", err)
	}
	if data.ConversationID != convID || data.Account.ID != candidate.ID {
		t.Fatalf("unexpected typing payload: %+v", data)
	}
	if h.store.MessageCount() != 1 {
		t.Fatal("typing must not persist anything")
	}
}

func TestSocketReadConversationResetsUnread(t *testing.T) {
	h := newSocketHarness(t)
	candidate := h.store.AddAccount(chat.Account{ID: "u1", FullName: "Candidate", Kind: chat.AccountKindNormal})
	business := h.store.AddAccount(chat.Account{ID: "b1", FullName: "ACME Corp", Kind: chat.AccountKindBusiness})
	h.store.AddApplication(candidate.ID, business.ID)

	wsCandidate := h.dial(t, candidate.ID)
	wsBusiness := h.dial(t, business.ID)

	sendFrame(t, wsCandidate, "NEW_MESSAGE", map[string]any{
		"members": []string{business.ID},
		"content": "unread me",
	})
	readFrame(t, wsCandidate)
	readFrame(t, wsCandidate)
	readFrame(t, wsBusiness)
	readFrame(t, wsBusiness)

	convID := firstConversationID(t, h.store, candidate.ID)

	sendFrame(t, wsBusiness, "READ_CONVERSATION", map[string]any{"conversation_id": convID})

	// Reads are acknowledged implicitly: the watermark lands in storage.
	deadline := time.Now().Add(2 * time.Second)
	for {
		member := h.store.MemberOf(convID, business.ID)
		if member != nil && member.LastReadAt != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for last_read_at")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func firstConversationID(t *testing.T, store *testsupport.Store, accountID string) string {
	t.Helper()
	ids, err := store.Conversations().ListConversationIDs(context.Background(), accountID)
	if err != nil || len(ids) == 0 {
		t.Fatalf("expected a conversation for %s, got %v (%v)", accountID, ids, err)
	}
	return ids[0]
}
