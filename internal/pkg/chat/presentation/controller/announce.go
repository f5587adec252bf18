package controller

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	qport "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/queue/port"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/realtime"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/task"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
)

// announceConversation runs the side effects of a freshly created
// conversation: every member's live connections join the channel before the
// NEW_CONVERSATION event goes out, and each member's cached conversation set
// learns the new id.
func announceConversation(
	ctx context.Context,
	registry *realtime.Registry,
	membership *usecase.MembershipService,
	out *usecase.CreateConversationOutput,
	log *zap.Logger,
) {
	conversationID := out.Conversation.ID

	for _, accountID := range out.MemberIDs {
		for _, sub := range registry.Connections(accountID) {
			registry.Subscribe(conversationID, sub)
		}
		membership.CachePush(ctx, accountID, conversationID)
	}

	payload, err := json.Marshal(eventFrame{Type: eventNewConversation, Data: out.Conversation})
	if err != nil {
		log.Error("encode conversation event failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return
	}
	if err := registry.Broadcast(ctx, conversationID, payload); err != nil {
		log.Error("broadcast conversation event failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}
}

// broadcastMessage publishes a persisted message to the conversation channel.
func broadcastMessage(ctx context.Context, registry *realtime.Registry, msg *usecase.MessageResponse, log *zap.Logger) {
	payload, err := json.Marshal(eventFrame{Type: eventNewMessage, Data: msg})
	if err != nil {
		log.Error("encode message event failed",
			zap.String("message_id", msg.ID), zap.Error(err))
		return
	}
	if err := registry.Broadcast(ctx, msg.ConversationID, payload); err != nil {
		log.Error("broadcast message event failed",
			zap.String("conversation_id", msg.ConversationID), zap.Error(err))
	}
}

// enqueueUnreadSync schedules background reconciliation of the recipients'
// cached unread counters. Best-effort: a failed enqueue is logged, the send
// path never fails on it.
func enqueueUnreadSync(ctx context.Context, q qport.Client, conversationID string, recipientIDs []string, log *zap.Logger) {
	if q == nil || len(recipientIDs) == 0 {
		return
	}
	payload, err := json.Marshal(task.SyncUnreadTaskPayload{
		ConversationID: conversationID,
		AccountIDs:     recipientIDs,
	})
	if err != nil {
		log.Error("encode unread sync payload failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return
	}
	_, err = q.Enqueue(ctx, qport.Task{Type: task.SyncUnreadTaskType, Payload: payload},
		qport.EnqueueOption{Queue: "chat", MaxRetry: 5})
	if err != nil {
		log.Warn("enqueue unread sync failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}
}
