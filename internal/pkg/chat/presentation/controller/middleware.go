package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	identityport "github.com/tung2212002/BE-TimViecNow-sub000/internal/repository/port"
)

const accountContextKey = "auth.account"

// RequireAccount resolves the bearer token (or the "token" query parameter,
// which browsers must use on websocket upgrades) to an account and aborts
// with 401 when it cannot.
func RequireAccount(accounts identityport.AccountRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "missing access token"})
			return
		}
		account, err := accounts.GetByToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "unexpected persistence error"})
			return
		}
		if account == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid access token"})
			return
		}
		c.Set(accountContextKey, account)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}

// AccountFrom returns the authenticated account set by RequireAccount.
func AccountFrom(c *gin.Context) *chat.Account {
	v, ok := c.Get(accountContextKey)
	if !ok {
		return nil
	}
	account, _ := v.(*chat.Account)
	return account
}
