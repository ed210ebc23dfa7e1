package api_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"flowchat/backend/internal/api"
	"flowchat/backend/internal/model"
)

func TestRouter(t *testing.T) {
	handler, mockChatSvc, _ := setupChatHandler(t)
	router := api.NewRouter(handler, []string{"http://localhost:5173"})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	t.Run("Health check", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("URL params reach the handler", func(t *testing.T) {
		mockChatSvc.On("CancelGeneration", "chat-42").Return(nil).Once()

		resp, err := http.Post(srv.URL+"/api/v1/chats/chat-42/cancel", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Streaming route is served as SSE", func(t *testing.T) {
		mockChatSvc.On("HandleNewMessage", mock.Anything, mock.Anything, mock.Anything).
			Run(streamChunks(2, model.StreamResponse{ChatID: "c1", Content: "ok", Done: true})).Once()

		resp, err := http.Post(srv.URL+"/api/v1/chats/messages", "application/json", strings.NewReader(`{"content":"hi"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	})

	t.Run("Metrics are exposed with route patterns", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `path="/api/v1/chats/{chatID}/cancel"`)
	})

	t.Run("CORS preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/chats", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}
