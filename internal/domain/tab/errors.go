package tab

import "errors"

var (
	// ErrAlreadyMounted is returned when a session is mounted twice.
	ErrAlreadyMounted = errors.New("session already mounted")
	// ErrNotMounted is returned by operations that need a surface.
	ErrNotMounted = errors.New("session not mounted")
	// ErrDisposed is returned after Dispose.
	ErrDisposed = errors.New("session disposed")
	// ErrNoSelection is returned when there is no text to send.
	ErrNoSelection = errors.New("no content selected")
	// ErrNoStore is returned when no content store is configured.
	ErrNoStore = errors.New("no content store configured")
)
