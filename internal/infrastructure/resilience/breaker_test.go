package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errLaunch = errors.New("launcher not found")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(threshold int) (*Breaker, *clock, *[]string) {
	c := &clock{now: time.Unix(1700000000, 0)}
	var changes []string
	b := New("opener", Settings{
		Threshold: threshold,
		Cooldown:  time.Minute,
		Now:       c.Now,
		OnStateChange: func(name string, from, to State) {
			changes = append(changes, name+":"+from.String()+"->"+to.String())
		},
	})
	return b, c, &changes
}

func fail() error    { return errLaunch }
func succeed() error { return nil }

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		calls     []bool // true = success, false = failure
		want      State
	}{
		{name: "stays closed on successes", threshold: 3, calls: []bool{true, true, true}, want: StateClosed},
		{name: "opens after consecutive failures", threshold: 3, calls: []bool{false, false, false}, want: StateOpen},
		{name: "success resets the run", threshold: 3, calls: []bool{false, false, true, false, false}, want: StateClosed},
		{name: "default threshold", threshold: 0, calls: []bool{false, false, false}, want: StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _, _ := newTestBreaker(tt.threshold)
			for _, ok := range tt.calls {
				if ok {
					_ = b.Do(succeed)
				} else {
					_ = b.Do(fail)
				}
			}
			assert.Equal(t, tt.want, b.State())
		})
	}
}

func TestBreakerRejectsWhileOpen(t *testing.T) {
	b, _, changes := newTestBreaker(2)
	assert.ErrorIs(t, b.Do(fail), errLaunch)
	assert.ErrorIs(t, b.Do(fail), errLaunch)

	ran := false
	err := b.Do(func() error { ran = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, ran)
	assert.Equal(t, []string{"opener:closed->open"}, *changes)
}

func TestBreakerHalfOpenTrial(t *testing.T) {
	t.Run("success closes", func(t *testing.T) {
		b, c, changes := newTestBreaker(1)
		_ = b.Do(fail)
		c.Advance(time.Minute)
		assert.Equal(t, StateHalfOpen, b.State())

		require.NoError(t, b.Do(succeed))
		assert.Equal(t, StateClosed, b.State())
		assert.Equal(t, 0, b.Failures())
		assert.Equal(t, []string{
			"opener:closed->open",
			"opener:open->half-open",
			"opener:half-open->closed",
		}, *changes)
	})

	t.Run("failure reopens", func(t *testing.T) {
		b, c, _ := newTestBreaker(1)
		_ = b.Do(fail)
		c.Advance(time.Minute)

		assert.ErrorIs(t, b.Do(fail), errLaunch)
		assert.Equal(t, StateOpen, b.State())

		c.Advance(30 * time.Second)
		assert.ErrorIs(t, b.Do(succeed), ErrCircuitOpen)
	})
}

func TestBreakerSingleProbe(t *testing.T) {
	b, c, _ := newTestBreaker(1)
	_ = b.Do(fail)
	c.Advance(time.Minute)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Do(func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	assert.ErrorIs(t, b.Do(succeed), ErrCircuitOpen)
	close(release)
	require.NoError(t, <-done)
	assert.NoError(t, b.Do(succeed))
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	b, _, _ := newTestBreaker(1)
	assert.Panics(t, func() {
		_ = b.Do(func() error { panic("boom") })
	})
	assert.Equal(t, StateOpen, b.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
