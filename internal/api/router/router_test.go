package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmercier/hosting-ai-platform/internal/chat"
	"github.com/lmercier/hosting-ai-platform/internal/http/handlers"
	"github.com/lmercier/hosting-ai-platform/internal/msgsync"
)

type nullCache struct{}

func (nullCache) Get(_ context.Context, _ string) ([]chat.Message, error) { return nil, nil }
func (nullCache) Put(_ context.Context, _ chat.Message) error             { return nil }

type nullFetcher struct{}

func (nullFetcher) FetchMessages(_ context.Context, _ string, _ bool) ([]chat.Message, error) {
	return nil, nil
}

func newTestHandler(t *testing.T, secret string) http.Handler {
	t.Helper()
	manager := msgsync.NewManager(func(conversationID string) *msgsync.Engine {
		return msgsync.NewEngine(conversationID, nullCache{}, nullFetcher{}, nil, nil, nil, nil, msgsync.Options{
			PollInterval:      time.Hour,
			ReconcileInterval: time.Hour,
			DebounceDelay:     time.Hour,
		})
	})
	t.Cleanup(manager.CloseAll)

	return New(&Config{
		ConversationsHandler: handlers.NewConversationsHandler(manager, nil),
		MetricsHandler:       http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
		AdminJWTSecret:       secret,
	})
}

func TestRouterPublicRoutes(t *testing.T) {
	h := newTestHandler(t, "secret")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/conversations/c1/messages", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterAdminRequiresJWT(t *testing.T) {
	h := newTestHandler(t, "secret")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/admin/conversations/c1", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	// Open the engine first so teardown has something to close.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/conversations/c1/messages", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodDelete, "/admin/conversations/c1", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRouterUnknownRoute(t *testing.T) {
	h := newTestHandler(t, "secret")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
