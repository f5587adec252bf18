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

// GetConversationController handles the single-conversation fetch endpoint only.
type GetConversationController struct {
	UC *usecase.GetConversationUseCase
}

func NewGetConversationController(pool *pgxpool.Pool) *GetConversationController {
	return &GetConversationController{
		UC: usecase.NewGetConversationUseCase(
			repoAdapter.NewPgConversationRepository(pool),
			repoAdapter.NewPgMessageRepository(pool),
			identityAdapter.NewPgAccountRepository(pool),
		),
	}
}

func (h *GetConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := AccountFrom(c)

		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "conversationId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		conv, err := h.UC.Execute(ctx, usecase.GetConversationInput{
			CallerID:       account.ID,
			ConversationID: conversationID,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "data": conv})
	}
}
