package surface

import (
	"bytes"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

const (
	defaultCols       = 80
	defaultRows       = 24
	defaultScrollback = 5000
	tabWidth          = 8
)

// Headless is an in-memory surface. It keeps a plain-text line buffer of
// everything written (escape sequences stripped, lines wrapped at the
// column width) and exposes the input side as methods, which makes it the
// surface of the attach command and of tests.
type Headless struct {
	mu         sync.Mutex
	cols       int
	rows       int
	scrollback int
	lines      [][]rune
	cursor     int
	pending    []byte
	selection  string
	visible    bool
	focused    bool
	disposed   bool
	options    Options
	keyHandler KeyHandler
	providers  []*LinkProvider
	resets     int

	data      Emitter[string]
	resize    Emitter[[2]int]
	selChange Emitter[struct{}]
	paste     Emitter[string]

	// Output, when set, receives every raw write.
	Output func(p []byte)
}

// NewHeadless creates a surface of the given size. Non-positive values
// select 80x24.
func NewHeadless(cols, rows int) *Headless {
	if cols <= 0 {
		cols = defaultCols
	}
	if rows <= 0 {
		rows = defaultRows
	}
	return &Headless{
		cols:       cols,
		rows:       rows,
		scrollback: defaultScrollback,
		lines:      [][]rune{nil},
		visible:    true,
	}
}

// Write implements Surface.
func (h *Headless) Write(p []byte) {
	h.mu.Lock()
	out := h.Output
	if h.disposed {
		h.mu.Unlock()
		return
	}
	buf := append(h.pending, p...)
	h.pending = nil

	cut := incompleteTail(buf)
	if cut < len(buf) {
		h.pending = append([]byte(nil), buf[cut:]...)
		buf = buf[:cut]
	}

	for _, r := range ansi.Strip(string(buf)) {
		h.put(r)
	}
	h.trim()
	h.mu.Unlock()

	if out != nil {
		out(p)
	}
}

// incompleteTail returns the index where a trailing partial escape
// sequence or UTF-8 rune starts, or len(b).
func incompleteTail(b []byte) int {
	if i := bytes.LastIndexByte(b, 0x1b); i >= 0 && !escapeComplete(b[i:]) {
		return i
	}
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return i
			}
			break
		}
	}
	return len(b)
}

func escapeComplete(seq []byte) bool {
	if len(seq) < 2 {
		return false
	}
	switch seq[1] {
	case '[':
		for _, c := range seq[2:] {
			if c >= 0x40 && c <= 0x7e {
				return true
			}
		}
		return false
	case ']', 'P', '_', '^':
		return bytes.IndexByte(seq, 0x07) >= 0 || bytes.Contains(seq, []byte{0x1b, '\\'})
	}
	return true
}

// put places one rune at the cursor. Caller holds mu.
func (h *Headless) put(r rune) {
	cur := len(h.lines) - 1
	if n := len(h.lines[cur]); h.cursor > n {
		h.cursor = n
	}
	switch r {
	case '\n':
		h.lines = append(h.lines, nil)
		h.cursor = 0
		return
	case '\r':
		h.cursor = 0
		return
	case '\b':
		if h.cursor > 0 {
			h.cursor--
		}
		return
	case '\t':
		w := runewidth.StringWidth(string(h.lines[cur][:h.cursor]))
		for n := tabWidth - w%tabWidth; n > 0; n-- {
			h.put(' ')
		}
		return
	case 0x07, 0x00:
		return
	}

	rw := runewidth.RuneWidth(r)
	if rw == 0 {
		return
	}
	if runewidth.StringWidth(string(h.lines[cur][:h.cursor]))+rw > h.cols {
		h.lines = append(h.lines, nil)
		h.cursor = 0
		cur++
	}

	line := h.lines[cur]
	if h.cursor < len(line) {
		line[h.cursor] = r
	} else {
		line = append(line, r)
	}
	h.lines[cur] = line
	h.cursor++
}

// trim drops lines beyond the scrollback limit. Caller holds mu.
func (h *Headless) trim() {
	limit := h.scrollback + h.rows
	if extra := len(h.lines) - limit; extra > 0 {
		h.lines = append([][]rune(nil), h.lines[extra:]...)
	}
}

// Size implements Surface.
func (h *Headless) Size() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cols, h.rows
}

// Fit implements Surface. A headless surface has no container, so its
// size only changes through Resize.
func (h *Headless) Fit() {}

// Resize changes the size and fires resize handlers.
func (h *Headless) Resize(cols, rows int) {
	h.mu.Lock()
	if cols <= 0 || rows <= 0 || (cols == h.cols && rows == h.rows) {
		h.mu.Unlock()
		return
	}
	h.cols, h.rows = cols, rows
	h.mu.Unlock()
	h.resize.Emit([2]int{cols, rows})
}

// Lines implements Surface.
func (h *Headless) Lines() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.lines)
}

// Line implements Surface.
func (h *Headless) Line(index int) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(h.lines) {
		return "", false
	}
	return string(h.lines[index]), true
}

// SetLines overwrites buffer lines from start on, growing the buffer as
// needed. Hosts that render output themselves push their line text here.
// A start more than one screen past the end is ignored.
func (h *Headless) SetLines(start int, lines []string) {
	if start < 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if start > len(h.lines)+h.rows {
		return
	}
	if drop := len(lines) - (h.scrollback + h.rows); drop > 0 {
		lines = lines[drop:]
		start += drop
	}
	for i, l := range lines {
		idx := start + i
		for idx >= len(h.lines) {
			h.lines = append(h.lines, nil)
		}
		h.lines[idx] = []rune(l)
	}
	h.trim()
	if last := len(h.lines[len(h.lines)-1]); h.cursor > last {
		h.cursor = last
	}
}

// Text returns the whole buffer joined by newlines.
func (h *Headless) Text() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	parts := make([]string, len(h.lines))
	for i, l := range h.lines {
		parts[i] = string(l)
	}
	return strings.Join(parts, "\n")
}

// Selection implements Surface.
func (h *Headless) Selection() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selection
}

// Select sets the selection and fires selection-change handlers.
func (h *Headless) Select(text string) {
	h.mu.Lock()
	h.selection = text
	h.mu.Unlock()
	h.selChange.Emit(struct{}{})
}

// Reset implements Surface.
func (h *Headless) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = [][]rune{nil}
	h.cursor = 0
	h.pending = nil
	h.selection = ""
	h.resets++
}

// Resets counts Reset calls.
func (h *Headless) Resets() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resets
}

// Clear implements Surface. The current line survives.
func (h *Headless) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = h.lines[len(h.lines)-1:]
}

// Show implements Surface.
func (h *Headless) Show() {
	h.mu.Lock()
	h.visible = true
	h.mu.Unlock()
}

// Hide implements Surface.
func (h *Headless) Hide() {
	h.mu.Lock()
	h.visible = false
	h.focused = false
	h.mu.Unlock()
}

// Focus implements Surface.
func (h *Headless) Focus() {
	h.mu.Lock()
	h.focused = true
	h.mu.Unlock()
}

// Visible reports whether the surface is shown.
func (h *Headless) Visible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visible
}

// Focused reports whether the surface has focus.
func (h *Headless) Focused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.focused
}

// SetOptions implements Surface.
func (h *Headless) SetOptions(o Options) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.options = o
	if o.Scrollback > 0 {
		h.scrollback = o.Scrollback
		h.trim()
	}
}

// Options returns the last applied options.
func (h *Headless) Options() Options {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.options
}

// RegisterLinkProvider implements Surface.
func (h *Headless) RegisterLinkProvider(p LinkProvider) Disposable {
	h.mu.Lock()
	defer h.mu.Unlock()
	ref := &p
	h.providers = append(h.providers, ref)
	return DisposeFunc(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, x := range h.providers {
			if x == ref {
				h.providers = append(h.providers[:i], h.providers[i+1:]...)
				return
			}
		}
	})
}

// LinksAt runs every registered provider for a line.
func (h *Headless) LinksAt(line int) []Link {
	h.mu.Lock()
	ps := make([]LinkProvider, len(h.providers))
	for i, p := range h.providers {
		ps[i] = *p
	}
	h.mu.Unlock()

	var out []Link
	for _, p := range ps {
		out = append(out, p(line)...)
	}
	return out
}

// OnData implements Surface.
func (h *Headless) OnData(fn func(string)) Disposable { return h.data.Subscribe(fn) }

// OnResize implements Surface.
func (h *Headless) OnResize(fn func(cols, rows int)) Disposable {
	return h.resize.Subscribe(func(v [2]int) { fn(v[0], v[1]) })
}

// OnSelectionChange implements Surface.
func (h *Headless) OnSelectionChange(fn func()) Disposable {
	return h.selChange.Subscribe(func(struct{}) { fn() })
}

// OnPaste implements Surface.
func (h *Headless) OnPaste(fn func(string)) Disposable { return h.paste.Subscribe(fn) }

// SetKeyHandler implements Surface.
func (h *Headless) SetKeyHandler(fn KeyHandler) {
	h.mu.Lock()
	h.keyHandler = fn
	h.mu.Unlock()
}

// Input simulates typed data.
func (h *Headless) Input(data string) { h.data.Emit(data) }

// Paste simulates a paste.
func (h *Headless) Paste(text string) { h.paste.Emit(text) }

// Key runs the key handler and reports whether the event passes through.
func (h *Headless) Key(ev KeyEvent) bool {
	h.mu.Lock()
	fn := h.keyHandler
	h.mu.Unlock()
	if fn == nil {
		return true
	}
	return fn(ev)
}

// Listeners reports the number of data and resize handlers.
func (h *Headless) Listeners() (data, resize int) {
	return h.data.Len(), h.resize.Len()
}

// Dispose implements Surface.
func (h *Headless) Dispose() {
	h.mu.Lock()
	h.disposed = true
	h.providers = nil
	h.keyHandler = nil
	h.mu.Unlock()
	h.data.Reset()
	h.resize.Reset()
	h.selChange.Reset()
	h.paste.Reset()
}
