package tab

import (
	"testing"

	"github.com/GriffinCanCode/termdock/internal/domain/surface"
	"github.com/stretchr/testify/assert"
)

func TestShortcut(t *testing.T) {
	down := func(key string, mods ...string) surface.KeyEvent {
		ev := surface.KeyEvent{Type: surface.KeyDown, Key: key}
		for _, m := range mods {
			switch m {
			case "meta":
				ev.Meta = true
			case "ctrl":
				ev.Ctrl = true
			case "shift":
				ev.Shift = true
			}
		}
		return ev
	}

	tests := []struct {
		name   string
		goos   string
		ev     surface.KeyEvent
		sel    bool
		action KeyAction
		data   string
	}{
		{name: "mac delete line", goos: "darwin", ev: down("Backspace", "meta"), action: KeySend, data: "\x15"},
		{name: "mac clear", goos: "darwin", ev: down("K", "meta"), action: KeySend, data: "\x0c"},
		{name: "mac copy selection", goos: "darwin", ev: down("c", "meta"), sel: true, action: KeyCopy},
		{name: "mac copy without selection", goos: "darwin", ev: down("c", "meta"), action: KeyPass},
		{name: "mac paste left to surface", goos: "darwin", ev: down("v", "meta"), action: KeyPass},
		{name: "mac ctrl c is the shell's", goos: "darwin", ev: down("c", "ctrl"), sel: true, action: KeyPass},
		{name: "linux delete line", goos: "linux", ev: down("Backspace", "ctrl", "shift"), action: KeySend, data: "\x15"},
		{name: "linux clear", goos: "linux", ev: down("k", "ctrl", "shift"), action: KeySend, data: "\x0c"},
		{name: "linux copy", goos: "linux", ev: down("C", "ctrl", "shift"), sel: true, action: KeyCopy},
		{name: "linux plain ctrl c", goos: "linux", ev: down("c", "ctrl"), sel: true, action: KeyPass},
		{name: "keyup ignored", goos: "darwin", ev: surface.KeyEvent{Type: "keyup", Key: "k", Meta: true}, action: KeyPass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, data := Shortcut(tt.goos, tt.ev, tt.sel)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.data, data)
		})
	}
}
