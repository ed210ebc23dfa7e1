package generation

import (
	"context"
	"errors"
	"fmt"

	app_errors "flowchat/backend/internal/errors"
	"flowchat/backend/internal/llm"
)

// Failure classes. A *Error always matches exactly one of them with errors.Is.
var (
	ErrCancelled = errors.New("generation cancelled")
	ErrTransport = fmt.Errorf("%w: generation transport failure", app_errors.ErrUnavailable)
	ErrProvider  = fmt.Errorf("%w: generation provider failure", app_errors.ErrUnavailable)
)

// Error is a classified generation failure.
type Error struct {
	Class error
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Class.Error()
	}
	return fmt.Sprintf("%v: %v", e.Class, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Class}
	}
	return []error{e.Class, e.Err}
}

// Kind is the short label used in stream events and metrics.
func (e *Error) Kind() string {
	switch e.Class {
	case ErrCancelled:
		return "cancelled"
	case ErrProvider:
		return "provider"
	default:
		return "transport"
	}
}

// Retryable reports whether a failed generation may be attempted again.
// Cancellation is terminal.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrProvider)
}

// Kind returns the failure label of err, or "" when err is not a generation failure.
func Kind(err error) string {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind()
	}
	return ""
}

// classify maps a provider error to a failure class. ctxErr is the state of
// the generation context when the provider returned.
func classify(err, ctxErr error) *Error {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr
	}
	if ctxErr != nil {
		return &Error{Class: ErrCancelled, Err: ctxErr}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Class: ErrCancelled, Err: err}
	}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		return &Error{Class: ErrProvider, Err: err}
	}
	return &Error{Class: ErrTransport, Err: err}
}
