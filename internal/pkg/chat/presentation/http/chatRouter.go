package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cacheport "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/cache/port"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/objectstore"
	qport "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/queue/port"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/realtime"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/presentation/controller"
	repoAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/adapter"
	identityAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/adapter"
)

// Deps bundles the process-wide infrastructure the chat endpoints share.
type Deps struct {
	Pool     *pgxpool.Pool
	Cache    cacheport.Cache
	Registry *realtime.Registry
	Queue    qport.Client
	Store    objectstore.Store
	Log      *zap.Logger
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router
// group. It constructs per-endpoint controllers and binds them directly to
// routes, all behind bearer-token auth.
func RegisterRoutes(g *gin.RouterGroup, d Deps) {
	accounts := identityAdapter.NewPgAccountRepository(d.Pool)
	membership := usecase.NewMembershipService(repoAdapter.NewPgConversationRepository(d.Pool), d.Cache, d.Log)

	listCtl := controller.NewListConversationsController(d.Pool)
	createCtl := controller.NewCreateConversationController(d.Pool, membership, d.Registry, d.Log)
	getCtl := controller.NewGetConversationController(d.Pool)
	updateCtl := controller.NewUpdateConversationController(d.Pool)
	messagesCtl := controller.NewGetMessagesController(d.Pool)
	attachCtl := controller.NewUploadAttachmentController(d.Pool, d.Store, d.Cache, d.Registry, d.Queue, d.Log)
	reactionCtl := controller.NewReactionController(d.Pool)
	pinCtl := controller.NewPinMessageController(d.Pool)
	pinnedCtl := controller.NewListPinnedController(d.Pool)
	unreadCtl := controller.NewUnreadController(d.Pool, d.Cache, d.Log)
	socketCtl := controller.NewChatSocketController(d.Pool, d.Registry, d.Cache, d.Queue, d.Log)

	auth := controller.RequireAccount(accounts)

	g.GET("/conversations", auth, listCtl.Handle())
	g.POST("/conversations", auth, createCtl.Handle())
	g.GET("/conversations/:conversationId", auth, getCtl.Handle())
	g.PATCH("/conversations/:conversationId", auth, updateCtl.Handle())
	g.GET("/conversations/:conversationId/messages", auth, messagesCtl.Handle())
	g.POST("/conversations/:conversationId/attachments", auth, attachCtl.Handle())
	g.GET("/conversations/:conversationId/pinned", auth, pinnedCtl.Handle())
	g.GET("/conversations/:conversationId/unread", auth, unreadCtl.Handle())
	g.PUT("/conversations/:conversationId/messages/:messageId/pin", auth, pinCtl.Handle())
	g.POST("/messages/:messageId/reactions", auth, reactionCtl.Handle())

	g.GET("/chat/ws", auth, socketCtl.Handle())
}
