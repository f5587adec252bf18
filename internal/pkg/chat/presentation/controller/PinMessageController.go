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

// PinMessageController handles the message pin endpoint only.
type PinMessageController struct {
	UC *usecase.PinMessageUseCase
}

func NewPinMessageController(pool *pgxpool.Pool) *PinMessageController {
	return &PinMessageController{
		UC: usecase.NewPinMessageUseCase(
			repoAdapter.NewPgConversationRepository(pool),
			repoAdapter.NewPgMessageRepository(pool),
		),
	}
}

func (h *PinMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := AccountFrom(c)

		conversationID := c.Param("conversationId")
		messageID := c.Param("messageId")
		if conversationID == "" || messageID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "conversationId and messageId are required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		err := h.UC.Execute(ctx, usecase.PinMessageInput{
			CallerID:       account.ID,
			ConversationID: conversationID,
			MessageID:      messageID,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}
