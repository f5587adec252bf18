package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/apperr"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/usecase"
)

// Server -> client event frame types.
const (
	eventNewMessage      = "NEW_MESSAGE"
	eventNewConversation = "NEW_CONVERSATION"
	eventUserTyping      = "USER_TYPING"
)

// eventFrame is the envelope of every server -> client event.
type eventFrame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// writeError maps domain and infrastructure failures to the JSON error
// envelope used by every HTTP endpoint.
func writeError(c *gin.Context, err error) {
	if ae, ok := apperr.As(err); ok {
		c.JSON(ae.Code, gin.H{"status": "error", "message": ae.Message})
		return
	}
	if errors.Is(err, usecase.ErrPersistence) {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "unexpected persistence error"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
}
