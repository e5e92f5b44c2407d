package ws

import (
	"encoding/base64"
	"strings"
	"sync"

	"github.com/GriffinCanCode/termdock/internal/domain/surface"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termdock/internal/shared/types"
	"go.uber.org/zap"
)

// maxControls bounds the control messages queued for a detached panel.
const maxControls = 256

// Server to client message types.
const (
	MsgOutput    = "output"
	MsgReset     = "reset"
	MsgClear     = "clear"
	MsgOptions   = "options"
	MsgShow      = "show"
	MsgHide      = "hide"
	MsgFocus     = "focus"
	MsgLinks     = "links"
	MsgClipboard = "clipboard"
	MsgOpen      = "open"
	MsgNotice    = "notice"
	MsgPong      = "pong"
	MsgError     = "error"
)

type control struct {
	at  uint64
	msg types.WSMessage
}

// attachment is one panel connection's view of a Remote.
type attachment struct {
	wake   chan struct{}
	kicked chan struct{}
}

// Remote is the surface of a session rendered by a panel over WebSocket.
// A headless mirror keeps line text, selection and event registries on the
// server; output and display commands are queued for the attached panel.
// At most one panel is attached; a new attachment supersedes the old one.
type Remote struct {
	*surface.Headless

	id      int
	backlog *Backlog
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu        sync.Mutex
	controls  []control
	att       *attachment
	delivered bool
	onDispose func()

	done     chan struct{}
	doneOnce sync.Once
}

func newRemote(id int, opts RegistryOptions, onDispose func()) *Remote {
	return &Remote{
		Headless:  surface.NewHeadless(opts.Cols, opts.Rows),
		id:        id,
		backlog:   NewBacklog(opts.Backlog),
		logger:    opts.Logger.With(zap.Int("session", id)),
		metrics:   opts.Metrics,
		onDispose: onDispose,
		done:      make(chan struct{}),
	}
}

// ID returns the session id the surface belongs to.
func (r *Remote) ID() int { return r.id }

// Done is closed when the surface is disposed.
func (r *Remote) Done() <-chan struct{} { return r.done }

// Backlog returns the undelivered output buffer.
func (r *Remote) Backlog() *Backlog { return r.backlog }

// Write implements surface.Surface.
func (r *Remote) Write(p []byte) {
	select {
	case <-r.done:
		return
	default:
	}
	r.Headless.Write(p)
	if dropped := r.backlog.Write(p); dropped > 0 {
		r.metrics.AddBacklogDropped(dropped)
		r.logger.Debug("output backlog overflow", zap.Int("dropped", dropped))
	}
	r.signal()
}

// Fit implements surface.Surface. The panel fits its own container and
// reports the result as a resize.
func (r *Remote) Fit() {}

// Reset implements surface.Surface. Undelivered output is discarded.
func (r *Remote) Reset() {
	r.Headless.Reset()
	r.backlog.Discard()
	r.enqueue(types.WSMessage{Type: MsgReset})
}

// Clear implements surface.Surface.
func (r *Remote) Clear() {
	r.Headless.Clear()
	r.enqueue(types.WSMessage{Type: MsgClear})
}

// Show implements surface.Surface.
func (r *Remote) Show() {
	r.Headless.Show()
	r.enqueue(types.WSMessage{Type: MsgShow})
}

// Hide implements surface.Surface.
func (r *Remote) Hide() {
	r.Headless.Hide()
	r.enqueue(types.WSMessage{Type: MsgHide})
}

// Focus implements surface.Surface.
func (r *Remote) Focus() {
	r.Headless.Focus()
	r.enqueue(types.WSMessage{Type: MsgFocus})
}

// SetOptions implements surface.Surface.
func (r *Remote) SetOptions(o surface.Options) {
	r.Headless.SetOptions(o)
	r.enqueue(types.WSMessage{Type: MsgOptions, Payload: o})
}

// Dispose implements surface.Surface.
func (r *Remote) Dispose() {
	r.doneOnce.Do(func() {
		r.Headless.Dispose()
		close(r.done)
		if r.onDispose != nil {
			r.onDispose()
		}
	})
}

func (r *Remote) enqueue(msg types.WSMessage) {
	r.mu.Lock()
	if len(r.controls) >= maxControls {
		r.controls = r.controls[1:]
	}
	r.controls = append(r.controls, control{at: r.backlog.Written(), msg: msg})
	r.mu.Unlock()
	r.signal()
}

func (r *Remote) signal() {
	r.mu.Lock()
	att := r.att
	r.mu.Unlock()
	if att == nil {
		return
	}
	select {
	case att.wake <- struct{}{}:
	default:
	}
}

// attach makes a new panel the consumer of queued messages and returns
// what it must replay first. A panel attaching after another one already
// received output gets the mirror's text instead of the raw backlog.
func (r *Remote) attach() (*attachment, []types.WSMessage) {
	att := &attachment{
		wake:   make(chan struct{}, 1),
		kicked: make(chan struct{}),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.att != nil {
		close(r.att.kicked)
	}
	r.att = att

	if !r.delivered {
		return att, nil
	}

	r.controls = nil
	r.backlog.Discard()
	replay := []types.WSMessage{
		{Type: MsgOptions, Payload: r.Headless.Options()},
		{Type: MsgReset},
	}
	if text := r.Headless.Text(); text != "" {
		replay = append(replay, outputMessage([]byte(strings.ReplaceAll(text, "\n", "\r\n"))))
	}
	if r.Headless.Visible() {
		replay = append(replay, types.WSMessage{Type: MsgShow})
	} else {
		replay = append(replay, types.WSMessage{Type: MsgHide})
	}
	if r.Headless.Focused() {
		replay = append(replay, types.WSMessage{Type: MsgFocus})
	}
	return att, replay
}

// detach releases att if it is still the current attachment.
func (r *Remote) detach(att *attachment) {
	r.mu.Lock()
	if r.att == att {
		r.att = nil
	}
	r.mu.Unlock()
}

// drain takes every queued message in order. Output written before a
// control message is delivered before it.
func (r *Remote) drain() []types.WSMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []types.WSMessage
	for _, c := range r.controls {
		if data := r.backlog.ReadUntil(c.at); len(data) > 0 {
			out = append(out, outputMessage(data))
		}
		out = append(out, c.msg)
	}
	r.controls = nil
	if data := r.backlog.ReadAll(); len(data) > 0 {
		out = append(out, outputMessage(data))
	}
	for _, m := range out {
		if m.Type == MsgOutput {
			r.delivered = true
			break
		}
	}
	return out
}

// outputMessage carries raw output bytes base64 encoded, since chunks may
// split UTF-8 sequences.
func outputMessage(data []byte) types.WSMessage {
	return types.WSMessage{Type: MsgOutput, Data: base64.StdEncoding.EncodeToString(data)}
}

// RegistryOptions configure the remote surfaces a Registry creates.
type RegistryOptions struct {
	Cols    int
	Rows    int
	Backlog int
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

// Registry creates and indexes remote surfaces by session id. Its
// NewSurface method is the multiplexer's surface factory.
type Registry struct {
	opts RegistryOptions

	mu      sync.RWMutex
	remotes map[int]*Remote
}

// NewRegistry creates an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Registry{
		opts:    opts,
		remotes: make(map[int]*Remote),
	}
}

// NewSurface creates the remote surface of session id.
func (g *Registry) NewSurface(id int) surface.Surface {
	var r *Remote
	r = newRemote(id, g.opts, func() { g.remove(id, r) })

	g.mu.Lock()
	g.remotes[id] = r
	g.mu.Unlock()
	return r
}

func (g *Registry) remove(id int, r *Remote) {
	g.mu.Lock()
	if g.remotes[id] == r {
		delete(g.remotes, id)
	}
	g.mu.Unlock()
}

// Get returns the surface of session id.
func (g *Registry) Get(id int) (*Remote, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.remotes[id]
	return r, ok
}

// Len returns the number of live surfaces.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.remotes)
}
