package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cacheport "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/cache/port"
	qport "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/queue/port"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/realtime"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/apperr"
	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/adapter"
	identityAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/adapter"
)

// Client -> server action types. The set is closed: anything else gets an
// error frame and the connection stays open.
type ActionType string

const (
	ActionNewMessage       ActionType = "NEW_MESSAGE"
	ActionTyping           ActionType = "TYPING"
	ActionReadConversation ActionType = "READ_CONVERSATION"
)

const defaultReadTimeout = 60 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now; plug a proper checker when deployments need one.
		return true
	},
}

// session is the per-connection state a frame handler operates on.
type session struct {
	conn    *realtime.Connection
	account *chat.Account
}

type frameHandler func(ctx context.Context, sess *session, data json.RawMessage) error

// ChatSocketController owns the websocket session loop: authenticate,
// attach, subscribe to the caller's conversations, then process inbound
// frames until the client disconnects.
type ChatSocketController struct {
	registry        *realtime.Registry
	membership      *usecase.MembershipService
	createConvUC    *usecase.CreateConversationUseCase
	sendMessageUC   *usecase.SendMessageUseCase
	unread          *usecase.UnreadCounter
	q               qport.Client
	log             *zap.Logger
	handlers        map[ActionType]frameHandler
	inflightTimeout time.Duration
}

func NewChatSocketController(
	pool *pgxpool.Pool,
	registry *realtime.Registry,
	cache cacheport.Cache,
	client qport.Client,
	log *zap.Logger,
) *ChatSocketController {
	convs := repoAdapter.NewPgConversationRepository(pool)
	messages := repoAdapter.NewPgMessageRepository(pool)
	accounts := identityAdapter.NewPgAccountRepository(pool)
	unread := usecase.NewUnreadCounter(messages, convs, cache, log)

	return newChatSocketController(
		registry,
		usecase.NewMembershipService(convs, cache, log),
		usecase.NewCreateConversationUseCase(convs, messages, accounts),
		usecase.NewSendMessageUseCase(convs, messages, unread),
		unread,
		client,
		log,
	)
}

func newChatSocketController(
	registry *realtime.Registry,
	membership *usecase.MembershipService,
	createConvUC *usecase.CreateConversationUseCase,
	sendMessageUC *usecase.SendMessageUseCase,
	unread *usecase.UnreadCounter,
	client qport.Client,
	log *zap.Logger,
) *ChatSocketController {
	ctl := &ChatSocketController{
		registry:        registry,
		membership:      membership,
		createConvUC:    createConvUC,
		sendMessageUC:   sendMessageUC,
		unread:          unread,
		q:               client,
		log:             log,
		inflightTimeout: 5 * time.Second,
	}
	ctl.handlers = map[ActionType]frameHandler{
		ActionNewMessage:       ctl.handleNewMessage,
		ActionTyping:           ctl.handleTyping,
		ActionReadConversation: ctl.handleReadConversation,
	}
	return ctl
}

// inboundFrame is the envelope of every client -> server frame.
type inboundFrame struct {
	Type *string         `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Handle upgrades the request and runs the session loop until the client
// disconnects. One malformed or failing frame never tears the session down.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := AccountFrom(c)

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just log and return.
			ctl.log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		conn := realtime.NewConnection(account.ID, ws)
		conn.Start()
		ctl.registry.Register(account.ID, conn)
		defer func() {
			ctl.registry.Detach(account.ID, conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		if err := ctl.joinOwnConversations(c.Request.Context(), account.ID, conn); err != nil {
			ctl.registry.SendError(conn, "failed to restore conversation subscriptions")
			ctl.log.Error("connect-time subscription failed",
				zap.String("account_id", account.ID), zap.Error(err))
			return
		}

		sess := &session{conn: conn, account: account}

		ws.SetReadLimit(1 << 20)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
					!errors.Is(err, websocket.ErrCloseSent) {
					ctl.log.Debug("websocket read ended",
						zap.String("account_id", account.ID), zap.Error(err))
				}
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil || frame.Type == nil {
				ctl.registry.SendError(conn, "invalid frame")
				continue
			}

			handler, ok := ctl.handlers[ActionType(*frame.Type)]
			if !ok {
				ctl.registry.SendError(conn, "unknown action type")
				continue
			}

			ctl.dispatch(c.Request.Context(), sess, handler, frame.Data)
		}
	}
}

// joinOwnConversations subscribes the fresh connection to every conversation
// the account is a member of, so broadcasts reach it before any frame is sent.
func (ctl *ChatSocketController) joinOwnConversations(ctx context.Context, accountID string, conn *realtime.Connection) error {
	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	ids, err := ctl.membership.ConversationIDs(ctx, accountID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		ctl.registry.Subscribe(id, conn)
	}
	return nil
}

// dispatch runs one frame handler with a bounded context, translating
// failures into error frames. A panicking handler is contained the same way.
func (ctl *ChatSocketController) dispatch(ctx context.Context, sess *session, h frameHandler, data json.RawMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			ctl.log.Error("frame handler panicked",
				zap.String("account_id", sess.account.ID), zap.Any("panic", rec))
			ctl.registry.SendError(sess.conn, "internal error")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	if err := h(ctx, sess, data); err != nil {
		if ae, ok := apperr.As(err); ok {
			ctl.registry.SendError(sess.conn, ae.Message)
			return
		}
		ctl.log.Error("frame handler failed",
			zap.String("account_id", sess.account.ID), zap.Error(err))
		ctl.registry.SendError(sess.conn, "internal error")
	}
}

type newMessagePayload struct {
	ConversationID *string  `json:"conversation_id"`
	Members        []string `json:"members"`
	Content        string   `json:"content"`
	Type           *string  `json:"type"`
	ParentID       *string  `json:"parent_id"`
}

// handleNewMessage sends a text message. Without a conversation_id it first
// resolves or creates the conversation for the given member list; a created
// conversation is announced to all members before the message itself.
func (ctl *ChatSocketController) handleNewMessage(ctx context.Context, sess *session, data json.RawMessage) error {
	var payload newMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return apperr.BadRequest("invalid NEW_MESSAGE payload")
	}
	if payload.Type != nil && chat.MessageType(*payload.Type) != chat.MessageTypeText {
		return apperr.BadRequest("only TEXT messages can be sent over the socket")
	}

	var conversationID string
	switch {
	case payload.ConversationID != nil && *payload.ConversationID != "":
		conversationID = *payload.ConversationID
		ok, err := ctl.membership.IsJoined(ctx, conversationID, sess.account.ID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Forbidden("caller is not a member of this conversation")
		}
	default:
		out, err := ctl.createConvUC.Execute(ctx, usecase.CreateConversationInput{
			Caller:    sess.account,
			MemberIDs: payload.Members,
		})
		if err != nil {
			return err
		}
		conversationID = out.Conversation.ID
		if out.Created {
			announceConversation(ctx, ctl.registry, ctl.membership, out, ctl.log)
		}
	}

	out, err := ctl.sendMessageUC.Execute(ctx, usecase.SendMessageInput{
		Caller:         sess.account,
		ConversationID: conversationID,
		Content:        payload.Content,
		ParentID:       payload.ParentID,
	})
	if err != nil {
		return err
	}

	broadcastMessage(ctx, ctl.registry, out.Message, ctl.log)
	enqueueUnreadSync(ctx, ctl.q, conversationID, out.RecipientIDs, ctl.log)
	return nil
}

type typingPayload struct {
	ConversationID string `json:"conversation_id"`
}

// handleTyping relays a transient typing indicator to the conversation.
// Nothing is persisted.
func (ctl *ChatSocketController) handleTyping(ctx context.Context, sess *session, data json.RawMessage) error {
	var payload typingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		return apperr.BadRequest("invalid TYPING payload")
	}

	ok, err := ctl.membership.IsJoined(ctx, payload.ConversationID, sess.account.ID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("caller is not a member of this conversation")
	}

	event, err := json.Marshal(eventFrame{Type: eventUserTyping, Data: gin.H{
		"conversation_id": payload.ConversationID,
		"account":         usecase.ProfileOf(*sess.account),
	}})
	if err != nil {
		return err
	}
	return ctl.registry.Broadcast(ctx, payload.ConversationID, event)
}

type readConversationPayload struct {
	ConversationID string `json:"conversation_id"`
}

// handleReadConversation marks the conversation read: last_read_at in storage
// and the cached unread counter drop to now/zero.
func (ctl *ChatSocketController) handleReadConversation(ctx context.Context, sess *session, data json.RawMessage) error {
	var payload readConversationPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		return apperr.BadRequest("invalid READ_CONVERSATION payload")
	}

	ok, err := ctl.membership.IsJoined(ctx, payload.ConversationID, sess.account.ID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("caller is not a member of this conversation")
	}

	return ctl.unread.Reset(ctx, sess.account.ID, payload.ConversationID)
}
