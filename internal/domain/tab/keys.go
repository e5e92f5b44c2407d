package tab

import (
	"strings"

	"github.com/GriffinCanCode/termdock/internal/domain/surface"
)

// Control bytes sent by composed shortcuts.
const (
	ctrlU = "\x15" // delete line
	ctrlL = "\x0c" // clear screen
)

// KeyAction is what a shortcut resolves to.
type KeyAction int

const (
	// KeyPass lets the surface handle the event.
	KeyPass KeyAction = iota
	// KeySend writes the returned bytes to the shell.
	KeySend
	// KeyCopy copies the selection.
	KeyCopy
)

// Shortcut maps a key event to an action. On macOS the modifier is Cmd;
// elsewhere it is Ctrl+Shift, leaving plain Ctrl chords to the shell.
func Shortcut(goos string, ev surface.KeyEvent, hasSelection bool) (KeyAction, string) {
	if ev.Type != surface.KeyDown {
		return KeyPass, ""
	}

	var mod bool
	if goos == "darwin" {
		mod = ev.Meta
	} else {
		mod = ev.Ctrl && ev.Shift
	}
	if !mod {
		return KeyPass, ""
	}

	switch strings.ToLower(ev.Key) {
	case "backspace":
		return KeySend, ctrlU
	case "k":
		return KeySend, ctrlL
	case "c":
		if hasSelection {
			return KeyCopy, ""
		}
	}
	return KeyPass, ""
}
