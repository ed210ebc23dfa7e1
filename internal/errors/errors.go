package errors

import "errors"

// Sentinel error categories shared by every layer. Domain packages wrap one of
// these with %w so the API layer can map them to HTTP statuses via errors.Is
// without knowing about engine or repository internals.

var (
	// ErrNotFound signifies that a requested chat, message or memory could not be located.
	// Mapped to 404 Not Found.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that client input failed a business rule.
	// Mapped to 400 Bad Request.
	ErrValidation = errors.New("validation failed")

	// ErrConflict signifies that the operation conflicts with the current state
	// of the conversation, e.g. an edit arriving while a reply is streaming.
	// Mapped to 409 Conflict.
	ErrConflict = errors.New("resource conflict")

	// ErrPermission signifies that the caller does not own the resource.
	// Mapped to 403 Forbidden.
	ErrPermission = errors.New("permission denied")

	// ErrUnavailable signifies that an upstream collaborator (model provider,
	// durable store) failed. Mapped to 502 Bad Gateway.
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrInternal signifies an unexpected error on the server.
	// Mapped to 500 Internal Server Error.
	ErrInternal = errors.New("internal server error")
)
