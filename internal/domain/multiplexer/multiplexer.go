package multiplexer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/termdock/internal/domain/surface"
	"github.com/GriffinCanCode/termdock/internal/domain/tab"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termdock/internal/providers/settings"
	"github.com/GriffinCanCode/termdock/internal/shared/types"
	"go.uber.org/zap"
)

var (
	// ErrClosed is returned after Dispose.
	ErrClosed = errors.New("multiplexer closed")
	// ErrAlreadyRestored is returned by a second restore.
	ErrAlreadyRestored = errors.New("sessions already restored")
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrLastSession is returned when closing the only session.
	ErrLastSession = errors.New("cannot close the last session")
)

// SessionStore persists the session layout.
type SessionStore interface {
	// Consume returns the persisted snapshot once.
	Consume() (types.SessionSetSnapshot, bool)
	// Save persists a snapshot without blocking.
	Save(types.SessionSetSnapshot)
}

// SurfaceFactory creates the surface a new session is mounted on.
type SurfaceFactory func(id int) surface.Surface

// Options configures a Multiplexer.
type Options struct {
	Deps       tab.Deps
	Settings   settings.Settings
	NewSurface SurfaceFactory
	// Store may be nil, which disables persistence.
	Store   SessionStore
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

// Multiplexer owns a set of sessions and tracks the active one.
type Multiplexer struct {
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	sessions []*tab.Session
	active   *tab.Session
	settings settings.Settings
	restored bool
	closed   bool
}

// New creates an empty multiplexer.
func New(opts Options) *Multiplexer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NewSurface == nil {
		opts.NewSurface = func(int) surface.Surface { return surface.NewHeadless(0, 0) }
	}
	if opts.Deps.Logger == nil {
		opts.Deps.Logger = opts.Logger
	}
	return &Multiplexer{
		opts:     opts,
		logger:   opts.Logger,
		settings: opts.Settings,
	}
}

// Open populates the multiplexer: it restores the persisted layout when
// restoring is enabled and a snapshot exists, and otherwise creates one
// session in initialDir, or the default directory when empty.
func (m *Multiplexer) Open(ctx context.Context, initialDir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	if !m.restored && m.settings.RestoreSession && m.opts.Store != nil {
		if snap, ok := m.opts.Store.Consume(); ok && len(snap.Tabs) > 0 {
			return m.restoreLocked(ctx, snap)
		}
	}
	m.restored = true

	if len(m.sessions) > 0 {
		return nil
	}
	_, err := m.createLocked(ctx, initialDir)
	return err
}

// Restore recreates the sessions of snap. It can run once per
// multiplexer. Snapshot ids are kept when positive and unique; the
// snapshot's active id is honoured, otherwise the last session is active.
func (m *Multiplexer) Restore(ctx context.Context, snap types.SessionSetSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return m.restoreLocked(ctx, snap)
}

func (m *Multiplexer) restoreLocked(ctx context.Context, snap types.SessionSetSnapshot) error {
	if m.restored {
		return ErrAlreadyRestored
	}
	m.restored = true

	ids := assignIDs(snap.Tabs, m.usedLocked())
	var activate *tab.Session
	for i, t := range snap.Tabs {
		s, err := m.mountLocked(ctx, ids[i], t.Cwd)
		if err != nil {
			return err
		}
		if t.ID == snap.ActiveTabID && ids[i] == t.ID {
			activate = s
		}
	}
	if len(m.sessions) == 0 {
		_, err := m.createLocked(ctx, "")
		return err
	}
	if activate == nil {
		activate = m.sessions[len(m.sessions)-1]
	}

	m.opts.Metrics.AddSessionsRestored(len(snap.Tabs))
	m.logger.Info("sessions restored", zap.Int("count", len(snap.Tabs)), zap.Int("active", activate.ID()))
	m.switchLocked(activate)
	return nil
}

// assignIDs keeps snapshot ids that are positive and unique and gives the
// rest the smallest ids still free.
func assignIDs(tabs []types.SessionSnapshot, used map[int]bool) []int {
	taken := make(map[int]bool, len(used)+len(tabs))
	for id := range used {
		taken[id] = true
	}
	ids := make([]int, len(tabs))
	for i, t := range tabs {
		if t.ID > 0 && !taken[t.ID] {
			ids[i] = t.ID
			taken[t.ID] = true
		}
	}
	next := 1
	for i := range ids {
		if ids[i] != 0 {
			continue
		}
		for taken[next] {
			next++
		}
		ids[i] = next
		taken[next] = true
	}
	return ids
}

// CreateSession creates, mounts and activates a new session with the
// smallest free id. An empty dir selects the default directory.
func (m *Multiplexer) CreateSession(ctx context.Context, dir string) (*tab.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.createLocked(ctx, dir)
}

func (m *Multiplexer) createLocked(ctx context.Context, dir string) (*tab.Session, error) {
	s, err := m.mountLocked(ctx, m.nextIDLocked(), dir)
	if err != nil {
		return nil, err
	}
	m.switchLocked(s)
	m.logger.Info("session created", zap.Int("session", s.ID()), zap.String("cwd", s.InitialDir()))
	return s, nil
}

func (m *Multiplexer) mountLocked(ctx context.Context, id int, dir string) (*tab.Session, error) {
	s := tab.New(id, dir, m.settings, m.opts.Deps)
	if err := s.Mount(ctx, m.opts.NewSurface(id)); err != nil {
		s.Dispose()
		return nil, fmt.Errorf("failed to mount session %d: %w", id, err)
	}
	m.sessions = append(m.sessions, s)
	return s, nil
}

func (m *Multiplexer) usedLocked() map[int]bool {
	used := make(map[int]bool, len(m.sessions))
	for _, s := range m.sessions {
		used[s.ID()] = true
	}
	return used
}

func (m *Multiplexer) nextIDLocked() int {
	used := m.usedLocked()
	id := 1
	for used[id] {
		id++
	}
	return id
}

// CloseSession disposes a session. The last session cannot be closed.
// When the active session closes, the session now at its index, or the
// one before it, becomes active.
func (m *Multiplexer) CloseSession(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	idx := m.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	if len(m.sessions) <= 1 {
		return ErrLastSession
	}

	s := m.sessions[idx]
	s.Dispose()
	m.sessions = append(m.sessions[:idx], m.sessions[idx+1:]...)
	m.logger.Info("session closed", zap.Int("session", id))

	if s == m.active {
		m.switchLocked(m.sessions[min(idx, len(m.sessions)-1)])
		return nil
	}
	m.persistLocked()
	return nil
}

// SwitchActive shows the session and hides the others.
func (m *Multiplexer) SwitchActive(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	idx := m.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	m.switchLocked(m.sessions[idx])
	return nil
}

func (m *Multiplexer) switchLocked(target *tab.Session) {
	for _, s := range m.sessions {
		if s != target {
			s.Hide()
		}
	}
	target.Show()
	m.active = target
	m.persistLocked()
}

// RestartSession restarts one session. A non-nil dir replaces its working
// directory.
func (m *Multiplexer) RestartSession(ctx context.Context, id int, dir *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	idx := m.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	if err := m.sessions[idx].Restart(ctx, dir); err != nil {
		return err
	}
	m.persistLocked()
	return nil
}

// RestartActive restarts the active session.
func (m *Multiplexer) RestartActive(ctx context.Context, dir *string) error {
	s, ok := m.Active()
	if !ok {
		return ErrSessionNotFound
	}
	return m.RestartSession(ctx, s.ID(), dir)
}

// SendToActive writes text to the active session's shell. Empty text is
// ignored.
func (m *Multiplexer) SendToActive(text string) error {
	if text == "" {
		return nil
	}
	s, ok := m.Active()
	if !ok {
		return ErrSessionNotFound
	}
	return s.WriteToShell(text)
}

// Get returns a session by id.
func (m *Multiplexer) Get(id int) (*tab.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(id)
	if idx < 0 {
		return nil, false
	}
	return m.sessions[idx], true
}

// Sessions returns the live sessions in creation order.
func (m *Multiplexer) Sessions() []*tab.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*tab.Session(nil), m.sessions...)
}

// Len returns the number of live sessions.
func (m *Multiplexer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Active returns the active session.
func (m *Multiplexer) Active() (*tab.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != nil
}

// Infos describes every session, sorted by id.
func (m *Multiplexer) Infos() []types.SessionInfo {
	m.mu.Lock()
	sessions := append([]*tab.Session(nil), m.sessions...)
	active := m.active
	m.mu.Unlock()

	out := make([]types.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		info := s.Info()
		info.Active = s == active
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot returns the persisted form of the layout.
func (m *Multiplexer) Snapshot() types.SessionSetSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Multiplexer) snapshotLocked() types.SessionSetSnapshot {
	snap := types.SessionSetSnapshot{
		Version: types.SnapshotVersion,
		Tabs:    make([]types.SessionSnapshot, 0, len(m.sessions)),
	}
	for _, s := range m.sessions {
		snap.Tabs = append(snap.Tabs, s.Serialize())
	}
	if m.active != nil {
		snap.ActiveTabID = m.active.ID()
	}
	return snap
}

func (m *Multiplexer) persistLocked() {
	m.opts.Metrics.SetSessionsActive(len(m.sessions))
	if m.opts.Store == nil {
		return
	}
	m.opts.Store.Save(m.snapshotLocked())
}

// Settings returns the settings new sessions are created with.
func (m *Multiplexer) Settings() settings.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// ApplySettings updates every live session and future ones.
func (m *Multiplexer) ApplySettings(st settings.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = st
	for _, s := range m.sessions {
		s.ApplySettings(st)
	}
}

// Dispose disposes every session. The persisted layout is left as it was
// so the next run can restore it.
func (m *Multiplexer) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for _, s := range m.sessions {
		s.Dispose()
	}
	m.sessions = nil
	m.active = nil
	m.opts.Metrics.SetSessionsActive(0)
}

func (m *Multiplexer) indexLocked(id int) int {
	for i, s := range m.sessions {
		if s.ID() == id {
			return i
		}
	}
	return -1
}
