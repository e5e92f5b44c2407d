package terminal

import "errors"

var (
	// ErrNotRunning is returned when an operation needs a live process.
	ErrNotRunning = errors.New("terminal: process not running")
	// ErrSpawnFailed wraps the underlying cause of a failed spawn.
	ErrSpawnFailed = errors.New("terminal: failed to start shell")
)
