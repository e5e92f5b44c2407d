package clipboard

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/aymanbagabas/go-osc52/v2"
)

// DefaultHistory is the number of entries a Memory clipboard keeps.
const DefaultHistory = 100

// ErrEmpty is returned when nothing has been copied yet.
var ErrEmpty = errors.New("clipboard is empty")

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Func adapts a function to Clipboard.
type Func func(ctx context.Context, text string) error

// WriteText implements Clipboard.
func (f Func) WriteText(ctx context.Context, text string) error {
	return f(ctx, text)
}

// OSC52 copies through the terminal emulator attached to w.
type OSC52 struct {
	mu   sync.Mutex
	w    io.Writer
	term string
}

// NewOSC52 creates an OSC 52 clipboard writing to w. term is the value of
// TERM and selects tmux or screen passthrough.
func NewOSC52(w io.Writer, term string) *OSC52 {
	return &OSC52{w: w, term: term}
}

// WriteText implements Clipboard.
func (c *OSC52) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	seq := osc52.New(text)
	switch {
	case hasPrefix(c.term, "tmux"):
		seq = seq.Tmux()
	case hasPrefix(c.term, "screen"):
		seq = seq.Screen()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := seq.WriteTo(c.w)
	return err
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// Item is one copied text.
type Item struct {
	Text     string    `json:"text"`
	CopiedAt time.Time `json:"copied_at"`
}

// Memory keeps copied text in process with a bounded history.
type Memory struct {
	mu      sync.RWMutex
	history []Item
	limit   int
	now     func() time.Time
}

// NewMemory creates an in-memory clipboard keeping up to limit entries.
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &Memory{limit: limit, now: time.Now}
}

// WriteText implements Clipboard.
func (m *Memory) WriteText(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, Item{Text: text, CopiedAt: m.now()})
	if over := len(m.history) - m.limit; over > 0 {
		m.history = append(m.history[:0], m.history[over:]...)
	}
	return nil
}

// ReadText returns the most recent entry.
func (m *Memory) ReadText() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return "", ErrEmpty
	}
	return m.history[len(m.history)-1].Text, nil
}

// History returns up to limit entries, newest first. limit <= 0 returns all.
func (m *Memory) History(limit int) []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Item, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.history[i])
	}
	return out
}

// Clear drops the history.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.history = nil
	m.mu.Unlock()
}

// Multi writes to every clipboard and returns the joined errors.
type Multi []Clipboard

// WriteText implements Clipboard.
func (m Multi) WriteText(ctx context.Context, text string) error {
	var errs []error
	for _, c := range m {
		if c == nil {
			continue
		}
		if err := c.WriteText(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
