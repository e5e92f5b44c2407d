package storage

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/GriffinCanCode/termdock/internal/shared/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statePath = "/state/session.json"

func TestEncodeFormat(t *testing.T) {
	data, err := Encode(types.SessionSetSnapshot{
		Version:     types.SnapshotVersion,
		Tabs:        []types.SessionSnapshot{{ID: 1, Cwd: "/a"}},
		ActiveTabID: 1,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"tabs":[{"id":1,"cwd":"/a"}],"activeTabId":1}`, string(data))

	data, err = Encode(types.SessionSetSnapshot{Version: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"tabs":[],"activeTabId":0}`, string(data))
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	_, err := Decode([]byte(`{"version":2,"tabs":[]}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestConsumeIsSingleShot(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, statePath,
		[]byte(`{"version":1,"tabs":[{"id":1,"cwd":"/a"},{"id":2,"cwd":"/b"}],"activeTabId":2}`), 0o644))
	s := NewStore(statePath, mem, nil, nil)

	snap, ok := s.Consume()
	require.True(t, ok)
	assert.Equal(t, 2, snap.ActiveTabID)
	assert.Len(t, snap.Tabs, 2)

	_, ok = s.Consume()
	assert.False(t, ok)
}

func TestConsumeTreatsFailuresAsNothing(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "missing"},
		{name: "corrupt", data: "{"},
		{name: "future version", data: `{"version":9,"tabs":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := afero.NewMemMapFs()
			if tt.data != "" {
				require.NoError(t, afero.WriteFile(mem, statePath, []byte(tt.data), 0o644))
			}
			_, ok := NewStore(statePath, mem, nil, nil).Consume()
			assert.False(t, ok)
		})
	}
}

func TestSaveLastWriteWins(t *testing.T) {
	mem := afero.NewMemMapFs()
	s := NewStore(statePath, mem, nil, nil)

	for i := 1; i <= 50; i++ {
		s.Save(types.SessionSetSnapshot{
			Tabs:        []types.SessionSnapshot{{ID: i, Cwd: "/x"}},
			ActiveTabID: i,
		})
	}
	require.NoError(t, s.Flush(context.Background()))

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 50, snap.ActiveTabID)
	assert.Equal(t, types.SnapshotVersion, snap.Version)

	exists, err := afero.Exists(mem, statePath+".tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSaveConcurrent(t *testing.T) {
	s := NewStore(statePath, afero.NewMemMapFs(), nil, nil)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.Save(types.SessionSetSnapshot{Tabs: []types.SessionSnapshot{{ID: id}}, ActiveTabID: id})
		}(i)
	}
	wg.Wait()
	require.NoError(t, s.Flush(context.Background()))

	snap, err := s.Load()
	require.NoError(t, err)
	require.Len(t, snap.Tabs, 1)
	assert.Equal(t, snap.ActiveTabID, snap.Tabs[0].ID)
}

func TestSaveCopiesTabs(t *testing.T) {
	s := NewStore(statePath, afero.NewMemMapFs(), nil, nil)
	tabs := []types.SessionSnapshot{{ID: 1, Cwd: "/a"}}

	s.Save(types.SessionSetSnapshot{Tabs: tabs, ActiveTabID: 1})
	tabs[0].Cwd = "/mutated"
	require.NoError(t, s.Flush(context.Background()))

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "/a", snap.Tabs[0].Cwd)
}

func TestWriteErrorReportedByFlush(t *testing.T) {
	s := NewStore(statePath, afero.NewReadOnlyFs(afero.NewMemMapFs()), nil, nil)

	s.Save(types.SessionSetSnapshot{ActiveTabID: 1})
	assert.Error(t, s.Flush(context.Background()))
}

func TestClearAndClose(t *testing.T) {
	mem := afero.NewMemMapFs()
	s := NewStore(statePath, mem, nil, nil)
	ctx := context.Background()

	s.Save(types.SessionSetSnapshot{ActiveTabID: 1})
	require.NoError(t, s.Clear(ctx))
	_, err := mem.Stat(statePath)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, s.Clear(ctx))

	require.NoError(t, s.Close(ctx))
	s.Save(types.SessionSetSnapshot{ActiveTabID: 2})
	require.NoError(t, s.Flush(ctx))
	_, err = mem.Stat(statePath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
