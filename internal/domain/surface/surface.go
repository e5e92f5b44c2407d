package surface

// Disposable releases a registration.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable.
type DisposeFunc func()

// Dispose implements Disposable.
func (f DisposeFunc) Dispose() {
	if f != nil {
		f()
	}
}

// Range is a half-open span of display cells on one line.
type Range struct {
	StartCol int `json:"startCol"`
	EndCol   int `json:"endCol"`
}

// Link is a clickable span on a rendered line.
type Link struct {
	Line  int    `json:"line"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Range Range  `json:"range"`
	Kind  string `json:"kind"`
	Text  string `json:"text"`

	// Activate performs the link's action.
	Activate func() `json:"-"`
}

// LinkProvider computes the links of one buffer line.
type LinkProvider func(line int) []Link

// KeyEvent is a keyboard event delivered before the surface handles it.
type KeyEvent struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	Meta  bool   `json:"meta"`
}

// KeyDown is the only event type key handlers act on.
const KeyDown = "keydown"

// KeyHandler returns true to let the surface process the event normally.
type KeyHandler func(KeyEvent) bool

// Options are the appearance settings forwarded to a surface.
type Options struct {
	FontSize    int     `json:"fontSize"`
	FontFamily  string  `json:"fontFamily"`
	CursorStyle string  `json:"cursorStyle"`
	CursorBlink bool    `json:"cursorBlink"`
	Scrollback  int     `json:"scrollback"`
	LineHeight  float64 `json:"lineHeight"`
	Theme       string  `json:"theme"`
}

// Surface is a terminal rendering surface. The engine never interprets
// escape sequences; it writes raw output and reads back rendered lines.
type Surface interface {
	Write(p []byte)
	Size() (cols, rows int)
	// Fit resizes the surface to its container.
	Fit()

	// Lines returns the number of buffer lines, scrollback included.
	Lines() int
	// Line returns the rendered text of a buffer line.
	Line(index int) (string, bool)
	Selection() string

	Reset()
	Clear()
	Show()
	Hide()
	Focus()
	SetOptions(Options)

	RegisterLinkProvider(LinkProvider) Disposable
	OnData(func(data string)) Disposable
	OnResize(func(cols, rows int)) Disposable
	OnSelectionChange(func()) Disposable
	OnPaste(func(text string)) Disposable
	SetKeyHandler(KeyHandler)

	Dispose()
}
