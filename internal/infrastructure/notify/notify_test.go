package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimitedSuppressesBursts(t *testing.T) {
	rec := &Recorder{}
	n := NewLimited(rec, time.Hour, nil)

	for i := 0; i < 5; i++ {
		n.Notify("unable to start terminal")
	}

	assert.Equal(t, []string{"unable to start terminal"}, rec.Messages())
}

func TestLimitedAllowsAfterInterval(t *testing.T) {
	rec := &Recorder{}
	n := NewLimited(rec, 20*time.Millisecond, nil)

	n.Notify("first")
	n.Notify("dropped")
	time.Sleep(40 * time.Millisecond)
	n.Notify("second")

	assert.Equal(t, []string{"first", "second"}, rec.Messages())
}

func TestFuncAndNilSink(t *testing.T) {
	var got string
	Func(func(m string) { got = m }).Notify("hi")
	assert.Equal(t, "hi", got)

	assert.NotPanics(t, func() { NewLimited(nil, 0, nil).Notify("x") })
}

func TestChannelsLimitOnlyFailures(t *testing.T) {
	rec := &Recorder{}
	ch := NewChannels(rec, time.Hour, nil)

	ch.Info.Notify("Created: a.md")
	ch.Info.Notify("No content selected")
	ch.Failures.Notify("unable to start terminal")
	ch.Failures.Notify("unable to start terminal")
	ch.Info.Notify("Created: b.md")

	assert.Equal(t, []string{
		"Created: a.md",
		"No content selected",
		"unable to start terminal",
		"Created: b.md",
	}, rec.Messages())
}
