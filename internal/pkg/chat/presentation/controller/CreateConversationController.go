package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/infrastructure/realtime"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/persistence/repository/adapter"
	identityAdapter "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/adapter"
)

// CreateConversationController handles the get-or-create endpoint only
// (one controller per endpoint).
type CreateConversationController struct {
	UC         *usecase.CreateConversationUseCase
	Membership *usecase.MembershipService
	Registry   *realtime.Registry
	Log        *zap.Logger
}

func NewCreateConversationController(
	pool *pgxpool.Pool,
	membership *usecase.MembershipService,
	registry *realtime.Registry,
	log *zap.Logger,
) *CreateConversationController {
	return &CreateConversationController{
		UC: usecase.NewCreateConversationUseCase(
			repoAdapter.NewPgConversationRepository(pool),
			repoAdapter.NewPgMessageRepository(pool),
			identityAdapter.NewPgAccountRepository(pool),
		),
		Membership: membership,
		Registry:   registry,
		Log:        log,
	}
}

type createConversationRequest struct {
	Members []string `json:"members" binding:"required"`
}

func (h *CreateConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := AccountFrom(c)

		var req createConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		out, err := h.UC.Execute(ctx, usecase.CreateConversationInput{
			Caller:    account,
			MemberIDs: req.Members,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		status := http.StatusOK
		if out.Created {
			status = http.StatusCreated
			announceConversation(ctx, h.Registry, h.Membership, out, h.Log)
		}

		c.JSON(status, gin.H{"status": "success", "data": out.Conversation})
	}
}
