// The `_test` suffix creates a "black box" test package: only the exported
// API of the handlers is exercised.
package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"flowchat/backend/internal/api"
	"flowchat/backend/internal/conversation"
	app_errors "flowchat/backend/internal/errors"
	"flowchat/backend/internal/generation"
	"flowchat/backend/internal/interfaces/mocks"
	"flowchat/backend/internal/model"
	"flowchat/backend/internal/queue"
	"flowchat/backend/internal/service"
)

// setupChatHandler builds a handler over mocked services.
func setupChatHandler(t *testing.T) (*api.ChatHandler, *mocks.MockChatService, *mocks.MockSettingsService) {
	mockChatSvc := mocks.NewMockChatService(t)
	mockSettingsSvc := mocks.NewMockSettingsService(t)
	handler := api.NewChatHandler(mockChatSvc, mockSettingsSvc)
	return handler, mockChatSvc, mockSettingsSvc
}

// addChiURLParams simulates how the chi router injects URL parameters
// (e.g. `{chatID}`) into the request's context.
func addChiURLParams(req *http.Request, params map[string]string) *http.Request {
	chiCtx := chi.NewRouteContext()
	for key, value := range params {
		chiCtx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chiCtx))
}

// streamChunks makes a mocked streaming call emit chunks and close the channel,
// as the real service does.
func streamChunks(chanArg int, chunks ...model.StreamResponse) func(mock.Arguments) {
	return func(args mock.Arguments) {
		ch := args.Get(chanArg).(chan<- model.StreamResponse)
		for _, c := range chunks {
			ch <- c
		}
		close(ch)
	}
}

func TestChatHandler_GetSettings(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, _, mockSettingsSvc := setupChatHandler(t)
		mockSettingsSvc.On("Get", mock.Anything).Return(&model.Settings{MainModel: "llama3"}, nil).Once()

		rr := httptest.NewRecorder()
		handler.GetSettings(rr, httptest.NewRequest(http.MethodGet, "/v1/settings", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"main_model":"llama3"`)
	})

	t.Run("Failure", func(t *testing.T) {
		handler, _, mockSettingsSvc := setupChatHandler(t)
		mockSettingsSvc.On("Get", mock.Anything).Return(nil, app_errors.ErrInternal).Once()

		rr := httptest.NewRecorder()
		handler.GetSettings(rr, httptest.NewRequest(http.MethodGet, "/v1/settings", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestChatHandler_UpdateSettings(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, _, mockSettingsSvc := setupChatHandler(t)
		mockSettingsSvc.On("Save", mock.Anything, mock.MatchedBy(func(s *model.Settings) bool {
			return s.MainModel == "model1" && s.SystemPrompt == "new prompt"
		})).Return(nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/v1/settings", strings.NewReader(`{"system_prompt":"new prompt","main_model":"model1"}`))
		rr := httptest.NewRecorder()
		handler.UpdateSettings(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Failure - Invalid JSON", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)
		rr := httptest.NewRecorder()
		handler.UpdateSettings(rr, httptest.NewRequest(http.MethodPost, "/v1/settings", strings.NewReader(`{invalid`)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Failure - Validation Error", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)
		req := httptest.NewRequest(http.MethodPost, "/v1/settings", strings.NewReader(`{"system_prompt":"new prompt","main_model":""}`))
		rr := httptest.NewRecorder()

		handler.UpdateSettings(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Field 'MainModel' failed on the 'required' tag")
	})
}

func TestChatHandler_GetChats(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		expectedChats := []*model.Chat{{ID: "chat1", Title: "Test Chat"}}
		mockChatSvc.On("ListChats", mock.Anything).Return(expectedChats, nil).Once()

		rr := httptest.NewRecorder()
		handler.GetChats(rr, httptest.NewRequest(http.MethodGet, "/v1/chats", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var returnedChats []*model.Chat
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &returnedChats))
		assert.Equal(t, expectedChats, returnedChats)
	})

	t.Run("Failure - Store unavailable", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("ListChats", mock.Anything).Return(nil, app_errors.ErrUnavailable).Once()

		rr := httptest.NewRecorder()
		handler.GetChats(rr, httptest.NewRequest(http.MethodGet, "/v1/chats", nil))

		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})

	t.Run("Failure - Unexpected error", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("ListChats", mock.Anything).Return(nil, errors.New("boom")).Once()

		rr := httptest.NewRecorder()
		handler.GetChats(rr, httptest.NewRequest(http.MethodGet, "/v1/chats", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "boom")
	})
}

func TestChatHandler_GetChat(t *testing.T) {
	chatID := "test-chat-id"

	t.Run("Success", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("GetFullChat", mock.Anything, chatID).Return(&model.FullChat{Chat: model.Chat{ID: chatID}, Unsaved: true}, nil).Once()

		req := addChiURLParams(httptest.NewRequest(http.MethodGet, "/v1/chats/"+chatID, nil), map[string]string{"chatID": chatID})
		rr := httptest.NewRecorder()
		handler.GetChat(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"unsaved":true`)
	})

	t.Run("Failure - Not Found", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("GetFullChat", mock.Anything, chatID).Return(nil, app_errors.ErrNotFound).Once()

		req := addChiURLParams(httptest.NewRequest(http.MethodGet, "/v1/chats/"+chatID, nil), map[string]string{"chatID": chatID})
		rr := httptest.NewRecorder()
		handler.GetChat(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestChatHandler_UpdateChatTitle(t *testing.T) {
	chatID := "test-chat-id"

	t.Run("Success", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("UpdateChatTitle", mock.Anything, chatID, "A valid title").Return(nil).Once()

		req := httptest.NewRequest(http.MethodPut, "/v1/chats/"+chatID+"/title", strings.NewReader(`{"title": "A valid title"}`))
		req = addChiURLParams(req, map[string]string{"chatID": chatID})
		rr := httptest.NewRecorder()
		handler.UpdateChatTitle(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Failure - Validation Error (empty title)", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)
		req := httptest.NewRequest(http.MethodPut, "/v1/chats/"+chatID+"/title", strings.NewReader(`{"title": ""}`))
		req = addChiURLParams(req, map[string]string{"chatID": chatID})
		rr := httptest.NewRecorder()
		handler.UpdateChatTitle(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Field 'Title' failed on the 'required' tag")
	})
}

func TestChatHandler_HandleDeleteChat(t *testing.T) {
	chatID := "test-chat-id"

	t.Run("Success", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("DeleteChat", mock.Anything, chatID).Return(nil).Once()
		req := addChiURLParams(httptest.NewRequest(http.MethodDelete, "/v1/chats/"+chatID, nil), map[string]string{"chatID": chatID})
		rr := httptest.NewRecorder()
		handler.HandleDeleteChat(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Failure - Not Found", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("DeleteChat", mock.Anything, chatID).Return(app_errors.ErrNotFound).Once()
		req := addChiURLParams(httptest.NewRequest(http.MethodDelete, "/v1/chats/"+chatID, nil), map[string]string{"chatID": chatID})
		rr := httptest.NewRecorder()
		handler.HandleDeleteChat(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestChatHandler_HandleStreamMessage(t *testing.T) {
	t.Run("Success - Chunks are relayed as events", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("HandleNewMessage", mock.Anything, mock.MatchedBy(func(r *service.CreateMessageRequest) bool {
			return r.Content == "hello"
		}), mock.Anything).Run(streamChunks(2,
			model.StreamResponse{ChatID: "c1", MessageID: "a1", Content: "Hi"},
			model.StreamResponse{ChatID: "c1", MessageID: "a1", Done: true},
		)).Once()

		rr := httptest.NewRecorder()
		handler.HandleStreamMessage(rr, httptest.NewRequest(http.MethodPost, "/v1/chats/messages", strings.NewReader(`{"content": "hello"}`)))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
		body := rr.Body.String()
		assert.Contains(t, body, `data: {"chat_id":"c1","message_id":"a1","content":"Hi","done":false}`)
		assert.Contains(t, body, `"done":true`)
		assert.NotContains(t, body, "event: error")
	})

	t.Run("Failed reply is sent as an error event", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("HandleNewMessage", mock.Anything, mock.Anything, mock.Anything).Run(streamChunks(2,
			model.StreamResponse{ChatID: "c1", MessageID: "a1", Content: "Par"},
			model.StreamResponse{ChatID: "c1", MessageID: "a1", Done: true, Error: "connection reset", ErrorKind: "transport"},
		)).Once()

		rr := httptest.NewRecorder()
		handler.HandleStreamMessage(rr, httptest.NewRequest(http.MethodPost, "/v1/chats/messages", strings.NewReader(`{"chat_id":"c1","content":"hi"}`)))

		assert.Contains(t, rr.Body.String(), "event: error\ndata: ")
		assert.Contains(t, rr.Body.String(), `"error_kind":"transport"`)
	})

	t.Run("Failure - Invalid JSON", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)
		rr := httptest.NewRecorder()
		handler.HandleStreamMessage(rr, httptest.NewRequest(http.MethodPost, "/v1/chats/messages", strings.NewReader(`{"content":`)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "invalid request body")
	})

	t.Run("Failure - Validation Error", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)
		rr := httptest.NewRecorder()
		handler.HandleStreamMessage(rr, httptest.NewRequest(http.MethodPost, "/v1/chats/messages", strings.NewReader(`{"content": ""}`)))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Field 'Content' failed on the 'required_without' tag")
	})
}

func TestChatHandler_HandleEditMessage(t *testing.T) {
	params := map[string]string{"chatID": "c1", "messageID": "u1"}

	t.Run("Edit only returns JSON", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("EditMessage", mock.Anything, "c1", "u1", &service.EditMessageRequest{Content: "hey"}).
			Return(&conversation.EditResult{
				Mode:    conversation.EditOnly,
				Message: model.Message{ID: "u1", Role: model.RoleUser, Content: "hey"},
			}, nil).Once()

		req := addChiURLParams(httptest.NewRequest(http.MethodPut, "/v1/chats/c1/messages/u1", strings.NewReader(`{"content":"hey"}`)), params)
		rr := httptest.NewRecorder()
		handler.HandleEditMessage(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp api.EditMessageResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "hey", resp.Message.Content)
		assert.Empty(t, resp.RemovedIDs)
	})

	t.Run("Regenerating edit streams the new reply", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("EditMessage", mock.Anything, "c1", "u1", mock.Anything).
			Return(&conversation.EditResult{
				Mode:    conversation.EditAndRegenerateFull,
				Message: model.Message{ID: "u1", Role: model.RoleUser, Content: "hey"},
				Removed: []model.Message{{ID: "a1"}},
			}, nil).Once()
		mockChatSvc.On("GenerateReply", mock.Anything, "c1", &service.ReplyRequest{Model: "qwen2"}, mock.Anything).
			Run(streamChunks(3, model.StreamResponse{ChatID: "c1", Content: "new", Done: true})).Once()

		body := `{"content":"hey","mode":"edit_and_regenerate_full","model":"qwen2"}`
		req := addChiURLParams(httptest.NewRequest(http.MethodPut, "/v1/chats/c1/messages/u1", strings.NewReader(body)), params)
		rr := httptest.NewRecorder()
		handler.HandleEditMessage(rr, req)

		assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Body.String(), `"content":"new"`)
	})

	t.Run("Busy chat is a conflict", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("EditMessage", mock.Anything, "c1", "u1", mock.Anything).Return(nil, conversation.ErrBusy).Once()

		req := addChiURLParams(httptest.NewRequest(http.MethodPut, "/v1/chats/c1/messages/u1", strings.NewReader(`{"content":"hey"}`)), params)
		rr := httptest.NewRecorder()
		handler.HandleEditMessage(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("Unknown mode is rejected before the service", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)
		req := addChiURLParams(httptest.NewRequest(http.MethodPut, "/v1/chats/c1/messages/u1", strings.NewReader(`{"content":"hey","mode":"rewrite"}`)), params)
		rr := httptest.NewRecorder()
		handler.HandleEditMessage(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestChatHandler_HandleRegenerateMessage(t *testing.T) {
	handler, mockChatSvc, _ := setupChatHandler(t)
	mockChatSvc.On("RegenerateMessage", mock.Anything, "c1", "a1", &service.ReplyRequest{}, mock.Anything).
		Run(streamChunks(4, model.StreamResponse{ChatID: "c1", Content: "again", Done: true})).Once()

	req := addChiURLParams(httptest.NewRequest(http.MethodPost, "/v1/chats/c1/messages/a1/regenerate", nil),
		map[string]string{"chatID": "c1", "messageID": "a1"})
	rr := httptest.NewRecorder()
	handler.HandleRegenerateMessage(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"content":"again"`)
}

func TestChatHandler_HandleDeleteMessage(t *testing.T) {
	handler, mockChatSvc, _ := setupChatHandler(t)
	mockChatSvc.On("DeleteMessage", mock.Anything, "c1", "gone").Return(conversation.ErrMessageNotFound).Once()

	req := addChiURLParams(httptest.NewRequest(http.MethodDelete, "/v1/chats/c1/messages/gone", nil),
		map[string]string{"chatID": "c1", "messageID": "gone"})
	rr := httptest.NewRecorder()
	handler.HandleDeleteMessage(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestChatHandler_HandleCancelGeneration(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("CancelGeneration", "c1").Return(nil).Once()

		req := addChiURLParams(httptest.NewRequest(http.MethodPost, "/v1/chats/c1/cancel", nil), map[string]string{"chatID": "c1"})
		rr := httptest.NewRecorder()
		handler.HandleCancelGeneration(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "cancelled")
	})

	t.Run("Nothing streaming", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("CancelGeneration", "c1").Return(conversation.ErrNotStreaming).Once()

		req := addChiURLParams(httptest.NewRequest(http.MethodPost, "/v1/chats/c1/cancel", nil), map[string]string{"chatID": "c1"})
		rr := httptest.NewRecorder()
		handler.HandleCancelGeneration(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestChatHandler_HandleGenerateArtifact(t *testing.T) {
	params := map[string]string{"chatID": "c1"}

	t.Run("Success", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		mockChatSvc.On("GenerateArtifact", mock.Anything, "c1", &service.ArtifactRequest{Prompt: "a cat"}).
			Return(&model.Message{ID: "a2", Role: model.RoleAssistant}, nil).Once()

		req := addChiURLParams(httptest.NewRequest(http.MethodPost, "/v1/chats/c1/artifacts", strings.NewReader(`{"prompt":"a cat"}`)), params)
		rr := httptest.NewRecorder()
		handler.HandleGenerateArtifact(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("Provider failure maps to bad gateway", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)
		genErr := &generation.Error{Class: generation.ErrProvider, Err: errors.New("content policy")}
		mockChatSvc.On("GenerateArtifact", mock.Anything, "c1", mock.Anything).Return(&model.Message{ID: "a2"}, genErr).Once()

		req := addChiURLParams(httptest.NewRequest(http.MethodPost, "/v1/chats/c1/artifacts", strings.NewReader(`{"prompt":"a cat"}`)), params)
		rr := httptest.NewRecorder()
		handler.HandleGenerateArtifact(rr, req)

		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})
}

func TestChatHandler_MemoriesAndQueue(t *testing.T) {
	handler, mockChatSvc, _ := setupChatHandler(t)
	mockChatSvc.On("ListMemories", mock.Anything).Return([]model.Memory{{ID: "m1", Content: "Lives in Lisbon"}}, nil).Once()
	mockChatSvc.On("QueueStatus").Return(queue.Status{QueueLength: 2, Processing: true}).Once()

	rr := httptest.NewRecorder()
	handler.GetMemories(rr, httptest.NewRequest(http.MethodGet, "/v1/memories", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Lives in Lisbon")

	rr = httptest.NewRecorder()
	handler.GetQueueStatus(rr, httptest.NewRequest(http.MethodGet, "/v1/queue/status", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"queue_length":2`)
	assert.Contains(t, rr.Body.String(), `"processing":true`)
}
