package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	chat "github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/application/domain"
	"github.com/tung2212002/BE-TimViecNow-sub000/internal/pkg/chat/testsupport"
)

func authRouter(store *testsupport.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", RequireAccount(store.Accounts()), func(c *gin.Context) {
		account := AccountFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": account.ID})
	})
	return r
}

func TestRequireAccountAcceptsBearerHeader(t *testing.T) {
	store := testsupport.NewStore()
	acc := store.AddAccount(chat.Account{ID: "u1", FullName: "User", Kind: chat.AccountKindNormal})
	r := authRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tok-"+acc.ID)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireAccountAcceptsTokenQuery(t *testing.T) {
	store := testsupport.NewStore()
	acc := store.AddAccount(chat.Account{ID: "u1", FullName: "User", Kind: chat.AccountKindNormal})
	r := authRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/me?token=tok-"+acc.ID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireAccountRejectsMissingAndUnknownTokens(t *testing.T) {
	store := testsupport.NewStore()
	r := authRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/me?token=tok-nobody", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", w.Code)
	}
}
