package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/adapter"
	identityAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/adapter"
)

// GetMessagesController handles the message history endpoint only.
type GetMessagesController struct {
	UC *usecase.GetMessagesUseCase
}

func NewGetMessagesController(pool *pgxpool.Pool) *GetMessagesController {
	return &GetMessagesController{
		UC: usecase.NewGetMessagesUseCase(
			repoAdapter.NewPgConversationRepository(pool),
			repoAdapter.NewPgMessageRepository(pool),
			identityAdapter.NewPgAccountRepository(pool),
		),
	}
}

func (h *GetMessagesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := AccountFrom(c)

		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "conversationId is required"})
			return
		}

		limit, offset := pagination(c, 50)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		msgs, err := h.UC.Execute(ctx, usecase.GetMessagesInput{
			CallerID:       account.ID,
			ConversationID: conversationID,
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "data": msgs})
	}
}
