package clipboard

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSC52(t *testing.T) {
	var buf bytes.Buffer
	c := NewOSC52(&buf, "xterm-256color")

	require.NoError(t, c.WriteText(context.Background(), "hello"))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\x1b]52;"))
	assert.Contains(t, out, base64.StdEncoding.EncodeToString([]byte("hello")))
}

func TestOSC52Tmux(t *testing.T) {
	var buf bytes.Buffer
	c := NewOSC52(&buf, "tmux-256color")

	require.NoError(t, c.WriteText(context.Background(), "x"))
	assert.True(t, strings.HasPrefix(buf.String(), "\x1bPtmux;"))
}

func TestOSC52CanceledContext(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, NewOSC52(&buf, "").WriteText(ctx, "x"), context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestMemoryHistory(t *testing.T) {
	m := NewMemory(2)
	ctx := context.Background()

	_, err := m.ReadText()
	assert.ErrorIs(t, err, ErrEmpty)

	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, m.WriteText(ctx, s))
	}

	text, err := m.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "c", text)

	items := m.History(0)
	require.Len(t, items, 2)
	assert.Equal(t, "c", items[0].Text)
	assert.Equal(t, "b", items[1].Text)
	assert.Len(t, m.History(1), 1)

	m.Clear()
	assert.Empty(t, m.History(0))
}

func TestMulti(t *testing.T) {
	m := NewMemory(0)
	failing := Func(func(context.Context, string) error { return errors.New("denied") })

	err := Multi{m, nil, failing}.WriteText(context.Background(), "x")
	assert.ErrorContains(t, err, "denied")

	text, _ := m.ReadText()
	assert.Equal(t, "x", text)
}
