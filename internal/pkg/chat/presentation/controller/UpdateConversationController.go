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

// UpdateConversationController handles the conversation update endpoint only.
type UpdateConversationController struct {
	UC *usecase.UpdateConversationUseCase
}

func NewUpdateConversationController(pool *pgxpool.Pool) *UpdateConversationController {
	return &UpdateConversationController{
		UC: usecase.NewUpdateConversationUseCase(
			repoAdapter.NewPgConversationRepository(pool),
			repoAdapter.NewPgMessageRepository(pool),
			identityAdapter.NewPgAccountRepository(pool),
		),
	}
}

type updateConversationRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

func (h *UpdateConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := AccountFrom(c)

		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "conversationId is required"})
			return
		}

		var req updateConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		conv, err := h.UC.Execute(ctx, usecase.UpdateConversationInput{
			CallerID:       account.ID,
			ConversationID: conversationID,
			Name:           req.Name,
			Avatar:         req.Avatar,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "data": conv})
	}
}
