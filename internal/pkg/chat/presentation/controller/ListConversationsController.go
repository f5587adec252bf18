package controller

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/adapter"
	identityAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/adapter"
)

// ListConversationsController handles the conversation listing endpoint only
// (one controller per endpoint).
type ListConversationsController struct {
	UC *usecase.ListConversationsUseCase
}

func NewListConversationsController(pool *pgxpool.Pool) *ListConversationsController {
	return &ListConversationsController{
		UC: usecase.NewListConversationsUseCase(
			repoAdapter.NewPgConversationRepository(pool),
			repoAdapter.NewPgMessageRepository(pool),
			identityAdapter.NewPgAccountRepository(pool),
		),
	}
}

func (h *ListConversationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := AccountFrom(c)

		limit, offset := pagination(c, 20)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		convs, err := h.UC.Execute(ctx, usecase.ListConversationsInput{
			CallerID: account.ID,
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "success", "data": convs})
	}
}

// pagination reads limit/offset query params with sane bounds.
func pagination(c *gin.Context, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
