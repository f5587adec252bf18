package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cacheport "github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/cache/port"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/apperr"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/adapter"
	repository "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/port"
)

// UnreadController handles the unread count endpoint only.
type UnreadController struct {
	Convs  repository.ConversationRepository
	Unread *usecase.UnreadCounter
}

func NewUnreadController(pool *pgxpool.Pool, cache cacheport.Cache, log *zap.Logger) *UnreadController {
	convs := repoAdapter.NewPgConversationRepository(pool)
	messages := repoAdapter.NewPgMessageRepository(pool)
	return &UnreadController{
		Convs:  convs,
		Unread: usecase.NewUnreadCounter(messages, convs, cache, log),
	}
}

func (h *UnreadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := AccountFrom(c)

		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "conversationId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		ok, err := h.Convs.IsMember(ctx, conversationID, account.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		if !ok {
			writeError(c, apperr.Forbidden("caller is not a member of this conversation"))
			return
		}

		count, err := h.Unread.Get(ctx, account.ID, conversationID)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"conversation_id": conversationID, "unread": count}})
	}
}
