package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/adapter"
)

// ReactionController handles the message reaction endpoint only.
type ReactionController struct {
	UC *usecase.SetReactionUseCase
}

func NewReactionController(pool *pgxpool.Pool) *ReactionController {
	return &ReactionController{
		UC: usecase.NewSetReactionUseCase(
			repoAdapter.NewPgConversationRepository(pool),
			repoAdapter.NewPgMessageRepository(pool),
		),
	}
}

type setReactionRequest struct {
	Kind string `json:"kind" binding:"required"`
}

func (h *ReactionController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := AccountFrom(c)

		messageID := c.Param("messageId")
		if messageID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "messageId is required"})
			return
		}

		var req setReactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		err := h.UC.Execute(ctx, usecase.SetReactionInput{
			CallerID:  account.ID,
			MessageID: messageID,
			Kind:      req.Kind,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}
