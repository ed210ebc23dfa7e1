package conversation

import (
	"fmt"

	app_errors "flowchat/backend/internal/errors"
)

// Engine errors. Each wraps an app_errors category so callers can branch on
// either the precise error or its class.
var (
	ErrMessageNotFound        = fmt.Errorf("%w: message not found", app_errors.ErrNotFound)
	ErrNotEditable            = fmt.Errorf("%w: only user messages can be edited", app_errors.ErrValidation)
	ErrEmptyContent           = fmt.Errorf("%w: content must not be empty", app_errors.ErrValidation)
	ErrNoPrecedingUserMessage = fmt.Errorf("%w: no user message precedes the target", app_errors.ErrValidation)
	ErrNotAssistantMessage    = fmt.Errorf("%w: only assistant messages can be regenerated", app_errors.ErrValidation)
	ErrInvalidEditMode        = fmt.Errorf("%w: unknown edit mode", app_errors.ErrValidation)
	ErrInvalidRole            = fmt.Errorf("%w: unknown role", app_errors.ErrValidation)
	ErrNotStreaming           = fmt.Errorf("%w: message is not streaming", app_errors.ErrConflict)
	ErrBusy                   = fmt.Errorf("%w: a reply is still streaming", app_errors.ErrConflict)
)
