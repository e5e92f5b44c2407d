package links

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/termdock/internal/providers/contentstore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, v contentstore.Viewer) *contentstore.FS {
	t.Helper()
	mem := afero.NewMemMapFs()
	for _, p := range []string{"notes/todo.md", "Plan.md", "src/app.ts"} {
		require.NoError(t, afero.WriteFile(mem, filepath.Join("/vault", p), []byte("x"), 0o644))
	}
	opts := []contentstore.Option{contentstore.WithFs(mem)}
	if v != nil {
		opts = append(opts, contentstore.WithViewer(v))
	}
	return contentstore.NewFS("/vault", opts...)
}

func TestResolve(t *testing.T) {
	r := NewResolver(newTestStore(t, nil), "")
	ctx := context.Background()

	tests := []struct {
		name       string
		match      Match
		dir        string
		wantKind   ActionKind
		wantTarget string
		wantCursor *contentstore.Cursor
	}{
		{name: "url", match: Match{Kind: KindURL, Value: "https://x.io"}, wantKind: ActionOpenExternal, wantTarget: "https://x.io"},
		{name: "email", match: Match{Kind: KindEmail, Value: "a@b.io"}, wantKind: ActionOpenExternal, wantTarget: "mailto:a@b.io"},
		{name: "internal uri verbatim", match: Match{Kind: KindInternal, Value: "obsidian://open?file=Plan"}, wantKind: ActionOpenInternalURI, wantTarget: "obsidian://open?file=Plan"},
		{name: "wikilink to entry", match: Match{Kind: KindInternal, Value: "Plan"}, wantKind: ActionOpenEntry, wantTarget: "Plan.md"},
		{name: "wikilink by name", match: Match{Kind: KindInternal, Value: "todo"}, wantKind: ActionOpenEntry, wantTarget: "notes/todo.md"},
		{name: "unknown wikilink", match: Match{Kind: KindInternal, Value: "Nope"}, wantKind: ActionOpenLinkText, wantTarget: "Nope"},
		{
			name:       "literal path with position",
			match:      Match{Kind: KindFile, Value: "src/app.ts", Line: 3, Column: 7},
			wantKind:   ActionOpenEntry,
			wantTarget: "src/app.ts",
			wantCursor: &contentstore.Cursor{Line: 2, Column: 6},
		},
		{
			name:       "missing column maps to zero",
			match:      Match{Kind: KindFile, Value: "src/app.ts", Line: 1},
			wantKind:   ActionOpenEntry,
			wantTarget: "src/app.ts",
			wantCursor: &contentstore.Cursor{Line: 0, Column: 0},
		},
		{name: "root prefix and default extension", match: Match{Kind: KindFile, Value: "/vault/notes/todo"}, wantKind: ActionOpenEntry, wantTarget: "notes/todo.md"},
		{name: "name only", match: Match{Kind: KindFile, Value: "./elsewhere/todo.md"}, wantKind: ActionOpenEntry, wantTarget: "notes/todo.md"},
		{name: "joined with session dir", match: Match{Kind: KindFile, Value: "./app.ts"}, dir: "/vault/src", wantKind: ActionOpenEntry, wantTarget: "src/app.ts"},
		{name: "outside store", match: Match{Kind: KindFile, Value: "/Users/me/todo.md"}, wantKind: ActionOpenPath, wantTarget: "/Users/me/todo.md"},
		{name: "relative outside store", match: Match{Kind: KindFile, Value: "./main.go"}, dir: "/work", wantKind: ActionOpenPath, wantTarget: filepath.Join("/work", "main.go")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := r.Resolve(ctx, tt.match, tt.dir)
			assert.Equal(t, tt.wantKind, a.Kind)
			assert.Equal(t, tt.wantTarget, a.Target)
			assert.Equal(t, tt.wantCursor, a.Cursor)
			if a.Kind == ActionOpenEntry {
				require.NotNil(t, a.Entry)
			}
		})
	}
}

func TestResolveWithoutStore(t *testing.T) {
	r := NewResolver(nil, "")
	ctx := context.Background()

	assert.Equal(t, ActionOpenLinkText, r.Resolve(ctx, Match{Kind: KindInternal, Value: "Plan"}, "").Kind)
	assert.Equal(t, ActionOpenPath, r.Resolve(ctx, Match{Kind: KindFile, Value: "/tmp/a.txt"}, "").Kind)
}

type mockOpener struct {
	mock.Mock
}

func (m *mockOpener) OpenURL(ctx context.Context, url string) error {
	return m.Called(url).Error(0)
}

func (m *mockOpener) OpenPath(ctx context.Context, path string) error {
	return m.Called(path).Error(0)
}

type mockViewer struct {
	mock.Mock
}

func (m *mockViewer) ShowEntry(ctx context.Context, abs string, e contentstore.Entry, c *contentstore.Cursor) error {
	return m.Called(abs, e.Path, c).Error(0)
}

func (m *mockViewer) ShowLinkText(ctx context.Context, text string) error {
	return m.Called(text).Error(0)
}

func TestActivate(t *testing.T) {
	opener := &mockOpener{}
	viewer := &mockViewer{}
	store := newTestStore(t, viewer)
	a := NewActivator(NewResolver(store, ""), store, opener, nil, nil)
	ctx := context.Background()

	opener.On("OpenURL", "mailto:a@b.io").Return(nil).Once()
	opener.On("OpenURL", "obsidian://open?file=x").Return(nil).Once()
	opener.On("OpenPath", "/Users/me/x.txt").Return(errors.New("no handler")).Once()
	viewer.On("ShowEntry", filepath.Join("/vault", "src/app.ts"), "src/app.ts", &contentstore.Cursor{Line: 9, Column: 2}).Return(nil).Once()
	viewer.On("ShowLinkText", "Missing").Return(nil).Once()

	_, err := a.Activate(ctx, Match{Kind: KindEmail, Value: "a@b.io"}, "")
	require.NoError(t, err)
	_, err = a.Activate(ctx, Match{Kind: KindInternal, Value: "obsidian://open?file=x"}, "")
	require.NoError(t, err)
	_, err = a.Activate(ctx, Match{Kind: KindFile, Value: "src/app.ts", Line: 10, Column: 3}, "")
	require.NoError(t, err)
	_, err = a.Activate(ctx, Match{Kind: KindInternal, Value: "Missing"}, "")
	require.NoError(t, err)

	action, err := a.Activate(ctx, Match{Kind: KindFile, Value: "/Users/me/x.txt"}, "")
	assert.Error(t, err)
	assert.Equal(t, ActionOpenPath, action.Kind)

	opener.AssertExpectations(t)
	viewer.AssertExpectations(t)
}

func TestPerformUnknownAction(t *testing.T) {
	a := NewActivator(NewResolver(nil, ""), nil, nil, nil, nil)
	assert.Error(t, a.Perform(context.Background(), Action{Kind: "teleport"}))
}
