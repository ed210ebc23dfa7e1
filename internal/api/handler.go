package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	app_errors "flowchat/backend/internal/errors"
	"flowchat/backend/internal/interfaces"
	"flowchat/backend/internal/model"
	"flowchat/backend/internal/service"
)

// ChatHandler handles HTTP requests for chats, messages, settings and the
// background queue.
type ChatHandler struct {
	chatService     interfaces.ChatService
	settingsService interfaces.SettingsService
}

func NewChatHandler(chatSvc interfaces.ChatService, settingsSvc interfaces.SettingsService) *ChatHandler {
	return &ChatHandler{chatService: chatSvc, settingsService: settingsSvc}
}

// --- Settings ---

// GetSettings godoc
// @Summary      Get settings
// @Description  Returns the runtime settings (system prompt and models).
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  model.Settings
// @Failure      500  {object}  ErrorResponse
// @Router       /v1/settings [get]
func (h *ChatHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.Get(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary      Update settings
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Param        settings  body      model.Settings  true  "New settings"
// @Success      200       {object}  model.Settings
// @Failure      400       {object}  ErrorResponse
// @Failure      500       {object}  ErrorResponse
// @Router       /v1/settings [post]
func (h *ChatHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.Settings
	if !decodeAndValidate(w, r, &settings) {
		return
	}
	if err := h.settingsService.Save(r.Context(), &settings); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

// --- Chats ---

// GetChats godoc
// @Summary      List chats
// @Description  Lists the owner's chats, most recently updated first.
// @Tags         Chats
// @Produce      json
// @Success      200  {array}   model.Chat
// @Failure      502  {object}  ErrorResponse
// @Router       /v1/chats [get]
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chatService.ListChats(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, chats)
}

// GetChat godoc
// @Summary      Get a chat
// @Description  Returns a chat with all its messages. An open chat is served from memory.
// @Tags         Chats
// @Produce      json
// @Param        chatID  path      string  true  "Chat ID"
// @Success      200     {object}  model.FullChat
// @Failure      404     {object}  ErrorResponse
// @Router       /v1/chats/{chatID} [get]
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	fullChat, err := h.chatService.GetFullChat(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, fullChat)
}

// UpdateChatTitle godoc
// @Summary      Rename a chat
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Param        chatID   path      string              true  "Chat ID"
// @Param        request  body      UpdateTitleRequest  true  "New title"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /v1/chats/{chatID}/title [put]
func (h *ChatHandler) UpdateChatTitle(w http.ResponseWriter, r *http.Request) {
	var req UpdateTitleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.chatService.UpdateChatTitle(r.Context(), chi.URLParam(r, "chatID"), req.Title); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "updated"})
}

// HandleDeleteChat godoc
// @Summary      Delete a chat
// @Tags         Chats
// @Produce      json
// @Param        chatID  path      string  true  "Chat ID"
// @Success      200     {object}  StatusResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /v1/chats/{chatID} [delete]
func (h *ChatHandler) HandleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := h.chatService.DeleteChat(r.Context(), chi.URLParam(r, "chatID")); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// --- Messages ---

// HandleStreamMessage godoc
// @Summary      Send a message
// @Description  Appends a user message (starting a new chat when chat_id is empty) and streams the reply as Server-Sent Events.
// @Tags         Messages
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body      service.CreateMessageRequest  true  "Message"
// @Success      200      {object}  model.StreamResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /v1/chats/messages [post]
func (h *ChatHandler) HandleStreamMessage(w http.ResponseWriter, r *http.Request) {
	var req service.CreateMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	streamToClient(w, r, func(ch chan<- model.StreamResponse) {
		h.chatService.HandleNewMessage(r.Context(), &req, ch)
	})
}

// HandleEditMessage godoc
// @Summary      Edit a user message
// @Description  With mode edit_only the edited message is returned as JSON. Regenerating modes drop the later messages and stream a new reply as Server-Sent Events.
// @Tags         Messages
// @Accept       json
// @Produce      json,text/event-stream
// @Param        chatID     path      string                      true  "Chat ID"
// @Param        messageID  path      string                      true  "Message ID"
// @Param        request    body      service.EditMessageRequest  true  "Edit"
// @Success      200        {object}  EditMessageResponse
// @Failure      400        {object}  ErrorResponse
// @Failure      404        {object}  ErrorResponse
// @Failure      409        {object}  ErrorResponse
// @Router       /v1/chats/{chatID}/messages/{messageID} [put]
func (h *ChatHandler) HandleEditMessage(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	var req service.EditMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.chatService.EditMessage(r.Context(), chatID, chi.URLParam(r, "messageID"), &req)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if !result.Regenerate() {
		respondWithJSON(w, http.StatusOK, newEditMessageResponse(result.Message, result.Removed))
		return
	}
	reply := &service.ReplyRequest{Model: req.Model, Options: req.Options}
	streamToClient(w, r, func(ch chan<- model.StreamResponse) {
		h.chatService.GenerateReply(r.Context(), chatID, reply, ch)
	})
}

// HandleRegenerateMessage godoc
// @Summary      Regenerate an assistant reply
// @Description  Drops the assistant message and everything after it, then streams a replacement as Server-Sent Events.
// @Tags         Messages
// @Accept       json
// @Produce      text/event-stream
// @Param        chatID     path      string                true   "Chat ID"
// @Param        messageID  path      string                true   "Assistant message ID"
// @Param        request    body      service.ReplyRequest  false  "Generation overrides"
// @Success      200        {object}  model.StreamResponse
// @Failure      400        {object}  ErrorResponse
// @Router       /v1/chats/{chatID}/messages/{messageID}/regenerate [post]
func (h *ChatHandler) HandleRegenerateMessage(w http.ResponseWriter, r *http.Request) {
	var req service.ReplyRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
		return
	}
	chatID, messageID := chi.URLParam(r, "chatID"), chi.URLParam(r, "messageID")
	streamToClient(w, r, func(ch chan<- model.StreamResponse) {
		h.chatService.RegenerateMessage(r.Context(), chatID, messageID, &req, ch)
	})
}

// HandleDeleteMessage godoc
// @Summary      Delete a message
// @Tags         Messages
// @Produce      json
// @Param        chatID     path      string  true  "Chat ID"
// @Param        messageID  path      string  true  "Message ID"
// @Success      200        {object}  StatusResponse
// @Failure      404        {object}  ErrorResponse
// @Failure      409        {object}  ErrorResponse
// @Router       /v1/chats/{chatID}/messages/{messageID} [delete]
func (h *ChatHandler) HandleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	err := h.chatService.DeleteMessage(r.Context(), chi.URLParam(r, "chatID"), chi.URLParam(r, "messageID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// HandleCancelGeneration godoc
// @Summary      Cancel the in-flight reply
// @Description  Stops the streaming reply of a chat. Content received so far is kept.
// @Tags         Messages
// @Produce      json
// @Param        chatID  path      string  true  "Chat ID"
// @Success      200     {object}  StatusResponse
// @Failure      409     {object}  ErrorResponse
// @Router       /v1/chats/{chatID}/cancel [post]
func (h *ChatHandler) HandleCancelGeneration(w http.ResponseWriter, r *http.Request) {
	if err := h.chatService.CancelGeneration(chi.URLParam(r, "chatID")); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "cancelled"})
}

// HandleGenerateArtifact godoc
// @Summary      Generate an image
// @Description  Generates an image artifact into a new assistant message.
// @Tags         Messages
// @Accept       json
// @Produce      json
// @Param        chatID   path      string                   true  "Chat ID"
// @Param        request  body      service.ArtifactRequest  true  "Prompt"
// @Success      201      {object}  model.Message
// @Failure      400      {object}  ErrorResponse
// @Failure      502      {object}  ErrorResponse
// @Router       /v1/chats/{chatID}/artifacts [post]
func (h *ChatHandler) HandleGenerateArtifact(w http.ResponseWriter, r *http.Request) {
	var req service.ArtifactRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	msg, err := h.chatService.GenerateArtifact(r.Context(), chi.URLParam(r, "chatID"), &req)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, msg)
}

// --- Memories & queue ---

// GetMemories godoc
// @Summary      List memories
// @Description  Lists the facts extracted from finished exchanges.
// @Tags         Memories
// @Produce      json
// @Success      200  {array}   model.Memory
// @Failure      502  {object}  ErrorResponse
// @Router       /v1/memories [get]
func (h *ChatHandler) GetMemories(w http.ResponseWriter, r *http.Request) {
	memories, err := h.chatService.ListMemories(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, memories)
}

// GetQueueStatus godoc
// @Summary      Background queue status
// @Tags         Memories
// @Produce      json
// @Success      200  {object}  queue.Status
// @Router       /v1/queue/status [get]
func (h *ChatHandler) GetQueueStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.chatService.QueueStatus())
}

// --- Helpers ---

// decodeAndValidate reads a JSON body into dst and validates it, writing a 400
// response and returning false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request body: %s", app_errors.ErrValidation, err.Error()))
		return false
	}
	if err := validateRequest(dst); err != nil {
		respondWithError(w, err)
		return false
	}
	return true
}

// streamToClient relays service chunks as Server-Sent Events. It keeps
// draining after the client goes away so the producer can settle the reply.
func streamToClient(w http.ResponseWriter, r *http.Request, produce func(chan<- model.StreamResponse)) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	streamChan := make(chan model.StreamResponse)
	go produce(streamChan)

	connected := true
	for chunk := range streamChan {
		if !connected {
			continue
		}
		var err error
		if chunk.Error != "" {
			err = sendStreamError(w, chunk)
		} else {
			err = writeStreamEvent(w, chunk)
		}
		if err != nil {
			slog.Warn("Client disconnected during stream", "error", err)
			connected = false
		}
	}
	slog.Debug("Finished streaming response", "path", r.URL.Path)
}
