package repository

import (
	"fmt"

	app_errors "flowchat/backend/internal/errors"
)

// ErrNotFound is returned when a chat or the settings record does not exist.
// It wraps app_errors.ErrNotFound so handlers can map it without importing
// this package, while keeping driver errors such as sql.ErrNoRows or
// redis.Nil out of the service layer.
var ErrNotFound = fmt.Errorf("repository: %w", app_errors.ErrNotFound)
