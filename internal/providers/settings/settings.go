package settings

import (
	"github.com/GriffinCanCode/termdock/internal/domain/surface"
)

// Working directory policies for new sessions.
const (
	CwdVault  = "vault"
	CwdHome   = "home"
	CwdCustom = "custom"
)

// Cursor styles.
const (
	CursorBlock     = "block"
	CursorUnderline = "underline"
	CursorBar       = "bar"
)

// Line height bounds.
const (
	MinLineHeight = 0.8
	MaxLineHeight = 1.2
)

// DefaultScrollback is the number of scrollback lines kept by a surface.
const DefaultScrollback = 5000

var themes = map[string]bool{"auto": true, "dark": true, "light": true, "dracula": true, "monokai": true}

// Settings are the user preferences for terminal sessions.
type Settings struct {
	Shell          string            `json:"shell" yaml:"shell" toml:"shell"`
	ShellArgs      []string          `json:"shellArgs" yaml:"shellArgs" toml:"shellArgs"`
	Env            map[string]string `json:"env" yaml:"env" toml:"env"`
	DefaultCwd     string            `json:"defaultCwd" yaml:"defaultCwd" toml:"defaultCwd"`
	CustomCwd      string            `json:"customCwd" yaml:"customCwd" toml:"customCwd"`
	CopyOnSelect   bool              `json:"copyOnSelect" yaml:"copyOnSelect" toml:"copyOnSelect"`
	RestoreSession bool              `json:"restoreSession" yaml:"restoreSession" toml:"restoreSession"`

	FontSize        int     `json:"fontSize" yaml:"fontSize" toml:"fontSize"`
	FontFamily      string  `json:"fontFamily" yaml:"fontFamily" toml:"fontFamily"`
	CursorStyle     string  `json:"cursorStyle" yaml:"cursorStyle" toml:"cursorStyle"`
	CursorBlink     bool    `json:"cursorBlink" yaml:"cursorBlink" toml:"cursorBlink"`
	Scrollback      int     `json:"scrollback" yaml:"scrollback" toml:"scrollback"`
	LineHeightScale float64 `json:"lineHeightScale" yaml:"lineHeightScale" toml:"lineHeightScale"`
	Theme           string  `json:"theme" yaml:"theme" toml:"theme"`
}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{
		DefaultCwd:      CwdVault,
		CopyOnSelect:    true,
		RestoreSession:  true,
		FontSize:        14,
		FontFamily:      "Menlo, Monaco, 'Courier New', monospace",
		CursorStyle:     CursorBlock,
		CursorBlink:     true,
		Scrollback:      DefaultScrollback,
		LineHeightScale: 1.0,
		Theme:           "auto",
	}
}

// Normalize replaces out-of-range values with defaults and clamps the line
// height.
func (s Settings) Normalize() Settings {
	def := Default()

	switch s.DefaultCwd {
	case CwdVault, CwdHome, CwdCustom:
	default:
		s.DefaultCwd = def.DefaultCwd
	}
	switch s.CursorStyle {
	case CursorBlock, CursorUnderline, CursorBar:
	default:
		s.CursorStyle = def.CursorStyle
	}
	if !themes[s.Theme] {
		s.Theme = def.Theme
	}
	if s.FontSize <= 0 {
		s.FontSize = def.FontSize
	}
	if s.FontFamily == "" {
		s.FontFamily = def.FontFamily
	}
	if s.Scrollback < 0 {
		s.Scrollback = def.Scrollback
	}
	switch {
	case s.LineHeightScale == 0:
		s.LineHeightScale = def.LineHeightScale
	case s.LineHeightScale < MinLineHeight:
		s.LineHeightScale = MinLineHeight
	case s.LineHeightScale > MaxLineHeight:
		s.LineHeightScale = MaxLineHeight
	}
	return s
}

// StartDir picks the working directory for a new session.
func (s Settings) StartDir(contentRoot, home string) string {
	switch s.DefaultCwd {
	case CwdHome:
		if home != "" {
			return home
		}
	case CwdCustom:
		if s.CustomCwd != "" {
			return s.CustomCwd
		}
	}
	if contentRoot != "" {
		return contentRoot
	}
	return home
}

// SurfaceOptions returns the appearance subset forwarded to surfaces.
func (s Settings) SurfaceOptions() surface.Options {
	return surface.Options{
		FontSize:    s.FontSize,
		FontFamily:  s.FontFamily,
		CursorStyle: s.CursorStyle,
		CursorBlink: s.CursorBlink,
		Scrollback:  s.Scrollback,
		LineHeight:  s.LineHeightScale,
		Theme:       s.Theme,
	}
}
