package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	app_errors "flowchat/backend/internal/errors"
	"flowchat/backend/internal/model"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse acknowledges an operation that has no resource to return.
type StatusResponse struct {
	Status string `json:"status"`
}

// UpdateTitleRequest renames a chat.
type UpdateTitleRequest struct {
	Title string `json:"title" validate:"required,min=1,max=100" example:"My Custom Chat Title"`
}

// EditMessageResponse is returned by a non-regenerating edit.
type EditMessageResponse struct {
	Message    model.Message `json:"message"`
	RemovedIDs []string      `json:"removed_ids"`
}

func newEditMessageResponse(msg model.Message, removed []model.Message) EditMessageResponse {
	ids := make([]string, len(removed))
	for i, m := range removed {
		ids[i] = m.ID
	}
	return EditMessageResponse{Message: msg, RemovedIDs: ids}
}

// errorStatus maps a service error to its HTTP status and the message shown
// to the client. Only validation and conflict messages are passed through.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, app_errors.ErrNotFound):
		return http.StatusNotFound, "The requested resource was not found."
	case errors.Is(err, app_errors.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, app_errors.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, app_errors.ErrPermission):
		return http.StatusForbidden, "You do not have permission to perform this action."
	case errors.Is(err, app_errors.ErrUnavailable):
		return http.StatusBadGateway, "An upstream service is unavailable, please retry."
	default:
		return http.StatusInternalServerError, "An unexpected internal server error occurred."
	}
}

func respondWithError(w http.ResponseWriter, err error) {
	status, message := errorStatus(err)
	slog.Warn("Responding with error", "status_code", status, "client_message", message, "internal_error", err)
	respondWithJSON(w, status, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// writeSSE writes one Server-Sent Event and flushes it. A write error means
// the client is gone; a marshal error drops the event but keeps the stream.
func writeSSE(w http.ResponseWriter, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("Failed to marshal stream event", "event", event, "error", err)
		return nil
	}
	if event != "" {
		_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	} else {
		_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	}
	if err != nil {
		return fmt.Errorf("failed to write stream event: %w", err)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// writeStreamEvent relays a regular chunk.
func writeStreamEvent(w http.ResponseWriter, chunk model.StreamResponse) error {
	return writeSSE(w, "", chunk)
}

// sendStreamError relays a failed chunk as an `error` event so clients can
// register a dedicated listener.
func sendStreamError(w http.ResponseWriter, chunk model.StreamResponse) error {
	slog.Warn("Sending stream error to client", "chat_id", chunk.ChatID, "kind", chunk.ErrorKind, "message", chunk.Error)
	return writeSSE(w, "error", chunk)
}
