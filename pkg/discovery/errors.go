package discovery

import "errors"

// Common errors returned by the discovery package.
var (
	// ErrNoLogsFound is returned when no event logs exist.
	ErrNoLogsFound = errors.New("no event logs found")

	// ErrSessionNotFound is returned when no log matches a session id.
	ErrSessionNotFound = errors.New("session log not found")
)
