package multiplexer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/termdock/internal/domain/surface"
	"github.com/GriffinCanCode/termdock/internal/domain/tab"
	"github.com/GriffinCanCode/termdock/internal/providers/settings"
	"github.com/GriffinCanCode/termdock/internal/providers/terminal"
	"github.com/GriffinCanCode/termdock/internal/providers/terminal/terminaltest"
	"github.com/GriffinCanCode/termdock/internal/shared/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory SessionStore.
type memStore struct {
	mu       sync.Mutex
	snap     *types.SessionSetSnapshot
	consumes int
	saves    []types.SessionSetSnapshot
}

func (s *memStore) Consume() (types.SessionSetSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumes++
	if s.snap == nil {
		return types.SessionSetSnapshot{}, false
	}
	snap := *s.snap
	s.snap = nil
	return snap, true
}

func (s *memStore) Save(snap types.SessionSetSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, snap)
}

func (s *memStore) last() types.SessionSetSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[len(s.saves)-1]
}

type fixture struct {
	spawner  *terminaltest.Spawner
	store    *memStore
	surfaces map[int]*surface.Headless
	mux      *Multiplexer
}

func newFixture(t *testing.T, st settings.Settings) *fixture {
	t.Helper()
	mem := afero.NewMemMapFs()
	for _, dir := range []string{"/a", "/b", "/c", "/home/me"} {
		require.NoError(t, mem.MkdirAll(dir, 0o755))
	}

	f := &fixture{
		spawner:  &terminaltest.Spawner{},
		store:    &memStore{},
		surfaces: map[int]*surface.Headless{},
	}
	var mu sync.Mutex
	f.mux = New(Options{
		Deps: tab.Deps{
			Terminal: terminal.Options{
				Spawner: f.spawner,
				Fs:      mem,
				GOOS:    "linux",
				Getenv:  func(string) string { return "/bin/sh" },
				Environ: func() []string { return nil },
				HomeDir: func() (string, error) { return "/home/me", nil },
				Getwd:   func() (string, error) { return "/", nil },
			},
			GOOS:    "linux",
			HomeDir: func() (string, error) { return "/home/me", nil },
		},
		Settings: st,
		NewSurface: func(id int) surface.Surface {
			mu.Lock()
			defer mu.Unlock()
			h := surface.NewHeadless(80, 24)
			f.surfaces[id] = h
			return h
		},
		Store: f.store,
	})
	t.Cleanup(f.mux.Dispose)
	return f
}

func ids(m *Multiplexer) []int {
	var out []int
	for _, s := range m.Sessions() {
		out = append(out, s.ID())
	}
	return out
}

func activeID(t *testing.T, m *Multiplexer) int {
	t.Helper()
	s, ok := m.Active()
	require.True(t, ok)
	return s.ID()
}

func TestCreateReusesSmallestFreeID(t *testing.T) {
	f := newFixture(t, settings.Default())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.mux.CreateSession(ctx, "/a")
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1, 2, 3}, ids(f.mux))

	require.NoError(t, f.mux.CloseSession(2))
	s, err := f.mux.CreateSession(ctx, "/a")
	require.NoError(t, err)

	assert.Equal(t, 2, s.ID())
	assert.Equal(t, []int{1, 3, 2}, ids(f.mux))
	assert.Equal(t, 2, activeID(t, f.mux))
}

func TestCloseLastSessionRefused(t *testing.T) {
	f := newFixture(t, settings.Default())
	s, err := f.mux.CreateSession(context.Background(), "/a")
	require.NoError(t, err)

	assert.ErrorIs(t, f.mux.CloseSession(s.ID()), ErrLastSession)
	assert.Equal(t, 1, f.mux.Len())
	assert.Equal(t, tab.StateRunning, s.State())
}

func TestCloseUnknownSession(t *testing.T) {
	f := newFixture(t, settings.Default())
	_, err := f.mux.CreateSession(context.Background(), "/a")
	require.NoError(t, err)

	assert.ErrorIs(t, f.mux.CloseSession(9), ErrSessionNotFound)
	assert.ErrorIs(t, f.mux.SwitchActive(9), ErrSessionNotFound)
}

func TestCloseActivatesNeighbor(t *testing.T) {
	f := newFixture(t, settings.Default())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.mux.CreateSession(ctx, "/a")
		require.NoError(t, err)
	}

	// closing the middle active session activates the one now at its index
	require.NoError(t, f.mux.SwitchActive(2))
	require.NoError(t, f.mux.CloseSession(2))
	assert.Equal(t, 3, activeID(t, f.mux))
	assert.True(t, f.surfaces[3].Visible())

	// closing the last active session activates the one before it
	require.NoError(t, f.mux.CloseSession(3))
	assert.Equal(t, 1, activeID(t, f.mux))

	// closing an inactive session keeps the active one
	_, err := f.mux.CreateSession(ctx, "/a")
	require.NoError(t, err)
	require.NoError(t, f.mux.CloseSession(1))
	assert.Equal(t, 2, activeID(t, f.mux))
}

func TestSwitchActiveHidesOthers(t *testing.T) {
	f := newFixture(t, settings.Default())
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.mux.CreateSession(ctx, "/a")
		require.NoError(t, err)
	}
	spawned := len(f.spawner.Commands())

	require.NoError(t, f.mux.SwitchActive(1))

	assert.True(t, f.surfaces[1].Visible())
	assert.False(t, f.surfaces[2].Visible())
	assert.Equal(t, spawned, len(f.spawner.Commands()))
	assert.Equal(t, 1, f.store.last().ActiveTabID)
}

func TestSnapshotRoundTrip(t *testing.T) {
	f := newFixture(t, settings.Default())
	ctx := context.Background()
	_, err := f.mux.CreateSession(ctx, "/a")
	require.NoError(t, err)
	_, err = f.mux.CreateSession(ctx, "/b")
	require.NoError(t, err)
	require.NoError(t, f.mux.SwitchActive(1))

	snap := f.mux.Snapshot()
	assert.Equal(t, types.SessionSetSnapshot{
		Version:     types.SnapshotVersion,
		Tabs:        []types.SessionSnapshot{{ID: 1, Cwd: "/a"}, {ID: 2, Cwd: "/b"}},
		ActiveTabID: 1,
	}, snap)
	assert.Equal(t, snap, f.store.last())

	g := newFixture(t, settings.Default())
	require.NoError(t, g.mux.Restore(ctx, snap))
	assert.Equal(t, snap, g.mux.Snapshot())

	cmds := g.spawner.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "/a", cmds[0].Dir)
	assert.Equal(t, "/b", cmds[1].Dir)
}

func TestRestoreOnce(t *testing.T) {
	f := newFixture(t, settings.Default())
	ctx := context.Background()
	snap := types.SessionSetSnapshot{Version: 1, Tabs: []types.SessionSnapshot{{ID: 1, Cwd: "/a"}}, ActiveTabID: 1}

	require.NoError(t, f.mux.Restore(ctx, snap))
	assert.ErrorIs(t, f.mux.Restore(ctx, snap), ErrAlreadyRestored)
	assert.Equal(t, 1, f.mux.Len())
}

func TestRestoreFixesInvalidIDs(t *testing.T) {
	f := newFixture(t, settings.Default())

	require.NoError(t, f.mux.Restore(context.Background(), types.SessionSetSnapshot{
		Version: 1,
		Tabs: []types.SessionSnapshot{
			{ID: 3, Cwd: "/a"},
			{ID: 3, Cwd: "/b"},
			{ID: -1, Cwd: "/c"},
		},
		ActiveTabID: 7,
	}))

	assert.Equal(t, []int{3, 1, 2}, ids(f.mux))
	assert.Equal(t, 2, activeID(t, f.mux))
}

func TestOpenRestoresWhenEnabled(t *testing.T) {
	f := newFixture(t, settings.Default())
	f.store.snap = &types.SessionSetSnapshot{
		Version:     1,
		Tabs:        []types.SessionSnapshot{{ID: 2, Cwd: "/a"}, {ID: 5, Cwd: "/b"}},
		ActiveTabID: 2,
	}

	require.NoError(t, f.mux.Open(context.Background(), "/c"))

	assert.Equal(t, []int{2, 5}, ids(f.mux))
	assert.Equal(t, 2, activeID(t, f.mux))
	assert.ErrorIs(t, f.mux.Restore(context.Background(), types.SessionSetSnapshot{}), ErrAlreadyRestored)
}

func TestOpenSkipsRestoreWhenDisabled(t *testing.T) {
	st := settings.Default()
	st.RestoreSession = false
	f := newFixture(t, st)
	f.store.snap = &types.SessionSetSnapshot{Version: 1, Tabs: []types.SessionSnapshot{{ID: 4, Cwd: "/a"}}}

	require.NoError(t, f.mux.Open(context.Background(), "/c"))

	assert.Zero(t, f.store.consumes)
	assert.Equal(t, []int{1}, ids(f.mux))
	assert.Equal(t, "/c", f.mux.Snapshot().Tabs[0].Cwd)
}

func TestOpenWithoutSnapshotUsesDefaultDir(t *testing.T) {
	f := newFixture(t, settings.Default())

	require.NoError(t, f.mux.Open(context.Background(), ""))

	assert.Equal(t, 1, f.store.consumes)
	require.Equal(t, 1, f.mux.Len())
	// no content root configured, so the vault policy falls back to home
	assert.Equal(t, "/home/me", f.mux.Snapshot().Tabs[0].Cwd)
}

func TestRestartActiveAndSend(t *testing.T) {
	f := newFixture(t, settings.Default())
	ctx := context.Background()
	_, err := f.mux.CreateSession(ctx, "/a")
	require.NoError(t, err)

	require.NoError(t, f.mux.SendToActive("ls\r"))
	assert.Equal(t, "ls\r", f.spawner.Last().Input())
	require.NoError(t, f.mux.SendToActive(""))

	dir := "/b"
	saves := len(f.store.saves)
	require.NoError(t, f.mux.RestartActive(ctx, &dir))
	assert.Equal(t, "/b", f.spawner.Last().Cmd.Dir)
	assert.Equal(t, 1, f.spawner.Live())
	assert.Greater(t, len(f.store.saves), saves)
	assert.Equal(t, "/a", f.store.last().Tabs[0].Cwd)
}

func TestApplySettingsBroadcast(t *testing.T) {
	f := newFixture(t, settings.Default())
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.mux.CreateSession(ctx, "/a")
		require.NoError(t, err)
	}

	st := settings.Default()
	st.FontSize = 20
	f.mux.ApplySettings(st)

	for _, id := range []int{1, 2} {
		assert.Equal(t, 20, f.surfaces[id].Options().FontSize)
	}
	s, err := f.mux.CreateSession(ctx, "/a")
	require.NoError(t, err)
	assert.Equal(t, 20, s.Settings().FontSize)
}

func TestDisposeKillsEverything(t *testing.T) {
	f := newFixture(t, settings.Default())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.mux.CreateSession(ctx, "/a")
		require.NoError(t, err)
	}

	f.mux.Dispose()

	assert.Eventually(t, func() bool { return f.spawner.Live() == 0 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, f.mux.Len())
	_, err := f.mux.CreateSession(ctx, "/a")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestInfos(t *testing.T) {
	f := newFixture(t, settings.Default())
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.mux.CreateSession(ctx, "/a")
		require.NoError(t, err)
	}

	infos := f.mux.Infos()
	require.Len(t, infos, 2)
	assert.False(t, infos[0].Active)
	assert.True(t, infos[1].Active)
	assert.Equal(t, "running", infos[1].State)
}

func TestAssignIDs(t *testing.T) {
	got := assignIDs([]types.SessionSnapshot{{ID: 0}, {ID: 2}, {ID: 2}, {ID: 1}}, map[int]bool{})
	assert.Equal(t, []int{3, 2, 4, 1}, got)
}
