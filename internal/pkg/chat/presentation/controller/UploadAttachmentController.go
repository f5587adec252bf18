package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cacheport "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/cache/port"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/objectstore"
	qport "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/queue/port"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/realtime"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/adapter"
)

// maxAttachmentSize caps uploaded image bodies.
const maxAttachmentSize = 10 << 20

// UploadAttachmentController handles the image attachment endpoint only.
type UploadAttachmentController struct {
	UC       *usecase.UploadAttachmentUseCase
	Registry *realtime.Registry
	Q        qport.Client
	Log      *zap.Logger
}

func NewUploadAttachmentController(
	pool *pgxpool.Pool,
	store objectstore.Store,
	cache cacheport.Cache,
	registry *realtime.Registry,
	client qport.Client,
	log *zap.Logger,
) *UploadAttachmentController {
	convs := repoAdapter.NewPgConversationRepository(pool)
	messages := repoAdapter.NewPgMessageRepository(pool)
	unread := usecase.NewUnreadCounter(messages, convs, cache, log)
	return &UploadAttachmentController{
		UC:       usecase.NewUploadAttachmentUseCase(convs, messages, store, unread),
		Registry: registry,
		Q:        client,
		Log:      log,
	}
}

func (h *UploadAttachmentController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := AccountFrom(c)

		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "conversationId is required"})
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "file is required"})
			return
		}
		if file.Size > maxAttachmentSize {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "file is too large"})
			return
		}

		body, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "cannot read uploaded file"})
			return
		}
		defer body.Close()

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		out, err := h.UC.Execute(ctx, usecase.UploadAttachmentInput{
			Caller:         account,
			ConversationID: conversationID,
			Filename:       file.Filename,
			Body:           body,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		broadcastMessage(ctx, h.Registry, out.Message, h.Log)
		enqueueUnreadSync(ctx, h.Q, conversationID, out.RecipientIDs, h.Log)

		c.JSON(http.StatusCreated, gin.H{"status": "success", "data": out.Message})
	}
}
