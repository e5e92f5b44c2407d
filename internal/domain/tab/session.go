package tab

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/termdock/internal/domain/links"
	"github.com/GriffinCanCode/termdock/internal/domain/surface"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/notify"
	"github.com/GriffinCanCode/termdock/internal/providers/clipboard"
	"github.com/GriffinCanCode/termdock/internal/providers/contentstore"
	"github.com/GriffinCanCode/termdock/internal/providers/settings"
	"github.com/GriffinCanCode/termdock/internal/providers/terminal"
	"github.com/GriffinCanCode/termdock/internal/shared/types"
	"go.uber.org/zap"
)

// Deps are the collaborators shared by every session of a multiplexer.
// Nil fields disable the matching feature.
type Deps struct {
	// Terminal configures the backend each session creates.
	Terminal  terminal.Options
	Store     contentstore.Store
	Clipboard clipboard.Clipboard
	Notifier  notify.Notifier
	// Failures receives error notices. Nil means Notifier.
	Failures  notify.Notifier
	Links     *links.Engine
	Activator *links.Activator
	Logger    *zap.Logger

	// Scheme is the internal URI scheme of drag payloads.
	Scheme  string
	GOOS    string
	HomeDir func() (string, error)
	Now     func() time.Time
}

func (d *Deps) setDefaults() {
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Failures == nil {
		d.Failures = d.Notifier
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Scheme == "" {
		d.Scheme = links.DefaultScheme
	}
	if d.GOOS == "" {
		d.GOOS = runtime.GOOS
	}
	if d.HomeDir == nil {
		d.HomeDir = os.UserHomeDir
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

// Session is one terminal tab: a backend, the surface it renders to and
// the input policies between them.
//
// Backend callbacks run on the process reader goroutine and only touch
// atomics and the surface, never mu.
type Session struct {
	id         int
	initialDir string
	deps       Deps
	backend    *terminal.Backend
	logger     *zap.Logger

	settings atomic.Pointer[settings.Settings]
	state    atomic.Int32
	exitCode atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	override string
	surface  surface.Surface
	sub      *terminal.Subscription
	onData   surface.Disposable
	onResize surface.Disposable
	fixed    []surface.Disposable
	disposed bool
}

// New creates an unstarted session. An empty dir selects the directory
// from the settings policy.
func New(id int, dir string, st settings.Settings, deps Deps) *Session {
	deps.setDefaults()
	logger := deps.Logger.With(zap.Int("session", id))
	deps.Terminal.Logger = logger

	initial := dir
	if initial == "" {
		home, _ := deps.HomeDir()
		root := ""
		if deps.Store != nil {
			root = deps.Store.Root()
		}
		initial = st.StartDir(root, home)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		initialDir: initial,
		override:   dir,
		deps:       deps,
		backend:    terminal.NewBackend(deps.Terminal),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
	s.settings.Store(&st)
	return s
}

// ID returns the session id.
func (s *Session) ID() int { return s.id }

// InitialDir returns the directory the session was created with.
func (s *Session) InitialDir() string { return s.initialDir }

// State returns the lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Exited reports whether the shell has exited.
func (s *Session) Exited() bool { return s.State() == StateExited }

// ExitCode returns the last exit code.
func (s *Session) ExitCode() int { return int(s.exitCode.Load()) }

// Settings returns the settings in effect.
func (s *Session) Settings() settings.Settings { return *s.settings.Load() }

// Dir returns the directory the shell runs in, falling back to the
// configured directory when no shell is running.
func (s *Session) Dir() string {
	if info, ok := s.backend.Info(); ok {
		return info.Dir
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirLocked()
}

func (s *Session) dirLocked() string {
	if s.override != "" {
		return s.override
	}
	return s.initialDir
}

// Surface returns the mounted surface, if any.
func (s *Session) Surface() (surface.Surface, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface, s.surface != nil
}

// Mount attaches surf, installs the input policies and starts the shell.
func (s *Session) Mount(ctx context.Context, surf surface.Surface) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	if s.surface != nil {
		return ErrAlreadyMounted
	}

	s.surface = surf
	surf.SetOptions(s.Settings().SurfaceOptions())
	surf.Fit()

	surf.SetKeyHandler(s.handleKey)
	s.fixed = append(s.fixed,
		surf.OnPaste(s.handlePaste),
		surf.OnSelectionChange(s.handleSelectionChange),
		surf.RegisterLinkProvider(s.provideLinks),
	)

	s.startLocked(ctx)
	return nil
}

// startLocked spawns a shell. Previous listeners are torn down first so a
// restart never leaves two consumers of input or output.
func (s *Session) startLocked(ctx context.Context) {
	s.teardownLocked()

	surf := s.surface
	cols, rows := surf.Size()
	st := s.Settings()

	sub := terminal.NewSubscription(
		surf.Write,
		func(code int) {
			s.exitCode.Store(int64(code))
			s.state.Store(int32(StateExited))
			surf.Write([]byte(fmt.Sprintf("\r\n[process exited: %d]\r\n", code)))
		},
	)
	s.sub = sub
	s.state.Store(int32(StateRunning))

	err := s.backend.Spawn(ctx, terminal.Request{
		Shell: st.Shell,
		Args:  st.ShellArgs,
		Env:   st.Env,
		Dir:   s.dirLocked(),
		Cols:  cols,
		Rows:  rows,
	}, sub)
	if err != nil {
		s.logger.Warn("shell did not start", zap.Error(err))
	}

	s.onData = surf.OnData(func(data string) {
		_ = s.backend.Write([]byte(data))
	})
	s.onResize = surf.OnResize(s.backend.Resize)
}

func (s *Session) teardownLocked() {
	if s.onData != nil {
		s.onData.Dispose()
		s.onData = nil
	}
	if s.onResize != nil {
		s.onResize.Dispose()
		s.onResize = nil
	}
	if s.sub != nil {
		s.sub.Dispose()
		s.sub = nil
	}
}

// Restart replaces the shell. A non-nil dir replaces the working directory
// override. Works on running and exited sessions.
func (s *Session) Restart(ctx context.Context, dir *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return ErrDisposed
	}
	if s.surface == nil {
		return ErrNotMounted
	}
	if dir != nil {
		s.override = *dir
	}

	s.teardownLocked()
	s.backend.Kill()
	s.surface.Reset()
	s.startLocked(ctx)
	s.surface.Focus()

	s.logger.Info("session restarted", zap.String("dir", s.dirLocked()))
	return nil
}

// WriteToShell sends data to the shell as if typed.
func (s *Session) WriteToShell(data string) error {
	return s.backend.Write([]byte(data))
}

// Serialize returns the persisted form of the session.
func (s *Session) Serialize() types.SessionSnapshot {
	return types.SessionSnapshot{ID: s.id, Cwd: s.initialDir}
}

// ApplySettings updates appearance now; shell settings apply on the next
// restart.
func (s *Session) ApplySettings(st settings.Settings) {
	s.settings.Store(&st)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface == nil || s.disposed {
		return
	}
	s.surface.SetOptions(st.SurfaceOptions())
	s.surface.Fit()
}

// Selection returns the selected text.
func (s *Session) Selection() string {
	if surf, ok := s.Surface(); ok {
		return surf.Selection()
	}
	return ""
}

// Output returns every buffer line joined by newlines.
func (s *Session) Output() string {
	surf, ok := s.Surface()
	if !ok {
		return ""
	}
	n := surf.Lines()
	var b []byte
	for i := 0; i < n; i++ {
		line, _ := surf.Line(i)
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, line...)
	}
	return string(b)
}

// Clear clears the surface.
func (s *Session) Clear() {
	if surf, ok := s.Surface(); ok {
		surf.Clear()
	}
}

// Fit resizes the surface to its container.
func (s *Session) Fit() {
	if surf, ok := s.Surface(); ok {
		surf.Fit()
	}
}

// Show makes the surface visible and focuses it.
func (s *Session) Show() {
	if surf, ok := s.Surface(); ok {
		surf.Show()
		surf.Fit()
		surf.Focus()
	}
}

// Hide hides the surface.
func (s *Session) Hide() {
	if surf, ok := s.Surface(); ok {
		surf.Hide()
	}
}

// Info describes the session.
func (s *Session) Info() types.SessionInfo {
	s.mu.Lock()
	info := types.SessionInfo{
		ID:      s.id,
		Cwd:     s.initialDir,
		Dir:     s.dirLocked(),
		Mounted: s.surface != nil,
	}
	s.mu.Unlock()

	info.State = s.State().String()
	if pi, ok := s.backend.Info(); ok {
		info.Pid = pi.Pid
		info.Dir = pi.Dir
	}
	return info
}

// Dispose kills the shell and releases the surface.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	s.cancel()

	s.teardownLocked()
	s.backend.Kill()
	for _, d := range s.fixed {
		d.Dispose()
	}
	s.fixed = nil
	if s.surface != nil {
		s.surface.Dispose()
	}
}

func (s *Session) handleKey(ev surface.KeyEvent) bool {
	sel := s.Selection()
	action, data := Shortcut(s.deps.GOOS, ev, sel != "")
	switch action {
	case KeySend:
		_ = s.backend.Write([]byte(data))
		return false
	case KeyCopy:
		s.copy(sel)
		return false
	}
	return true
}

func (s *Session) handlePaste(text string) {
	_ = s.backend.Write([]byte(text))
}

func (s *Session) handleSelectionChange() {
	if !s.Settings().CopyOnSelect {
		return
	}
	if sel := s.Selection(); sel != "" {
		s.copy(sel)
	}
}

func (s *Session) copy(text string) {
	if s.deps.Clipboard == nil {
		return
	}
	if err := s.deps.Clipboard.WriteText(s.ctx, text); err != nil {
		s.logger.Debug("clipboard write failed", zap.Error(err))
	}
}

// provideLinks computes the links of one rendered line.
func (s *Session) provideLinks(line int) []surface.Link {
	if s.deps.Links == nil {
		return nil
	}
	surf, ok := s.Surface()
	if !ok {
		return nil
	}
	text, ok := surf.Line(line)
	if !ok || text == "" {
		return nil
	}

	matches := s.deps.Links.FindLinks(text)
	out := make([]surface.Link, 0, len(matches))
	for _, m := range matches {
		startCol, endCol := links.Columns(text, m)
		out = append(out, surface.Link{
			Line:     line,
			Start:    m.Start,
			End:      m.End,
			Range:    surface.Range{StartCol: startCol, EndCol: endCol},
			Kind:     string(m.Kind),
			Text:     text[m.Start:m.End],
			Activate: func() { s.activate(m) },
		})
	}
	return out
}

// Links returns the raw matches of one rendered line.
func (s *Session) Links(line int) []links.Match {
	if s.deps.Links == nil {
		return nil
	}
	surf, ok := s.Surface()
	if !ok {
		return nil
	}
	text, ok := surf.Line(line)
	if !ok {
		return nil
	}
	return s.deps.Links.FindLinks(text)
}

// ActivateLink resolves and performs a match relative to the session's
// directory.
func (s *Session) ActivateLink(ctx context.Context, m links.Match) (links.Action, error) {
	if s.deps.Activator == nil {
		return links.Action{}, fmt.Errorf("link activation not configured")
	}
	action, err := s.deps.Activator.Activate(ctx, m, s.Dir())
	if err != nil {
		s.deps.Failures.Notify(fmt.Sprintf("Unable to open %s", m.Value))
	}
	return action, err
}

func (s *Session) activate(m links.Match) {
	_, _ = s.ActivateLink(s.ctx, m)
}

// InsertPaths writes shell-escaped paths to the prompt.
func (s *Session) InsertPaths(paths []string) error {
	escaped := EscapePaths(s.deps.GOOS, paths)
	if escaped == "" {
		return nil
	}
	return s.backend.Write([]byte(escaped))
}

// DropInternal resolves an internal drag payload through the content store
// and inserts its absolute path.
func (s *Session) DropInternal(ctx context.Context, data string) error {
	if s.deps.Store == nil {
		return ErrNoStore
	}
	target := ParseDragPayload(s.deps.Scheme, data)
	if target == "" {
		return nil
	}
	e, err := findDropped(ctx, s.deps.Store, target)
	if err != nil {
		return err
	}
	return s.InsertPaths([]string{s.deps.Store.AbsPath(e.Path)})
}
