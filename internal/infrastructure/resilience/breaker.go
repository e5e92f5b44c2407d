package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without running the call while the breaker
// is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// Threshold is the number of consecutive failures that opens the
	// breaker. Zero means 3.
	Threshold int
	// Cooldown is how long the breaker stays open before one trial call
	// is let through. Zero means 30s.
	Cooldown time.Duration
	// OnStateChange is called whenever the state changes, with the lock
	// released.
	OnStateChange func(name string, from, to State)
	// Now replaces time.Now in tests.
	Now func() time.Time
}

// Breaker stops calling a failing dependency for a while. After Cooldown
// a single trial call decides whether it closes again.
type Breaker struct {
	name     string
	settings Settings

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	if settings.Threshold <= 0 {
		settings.Threshold = 3
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &Breaker{name: name, settings: settings}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.cooledLocked() {
		return StateHalfOpen
	}
	return b.state
}

// Failures returns the current run of consecutive failures.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Do runs call unless the breaker is open. While half-open only one call
// runs at a time; others get ErrCircuitOpen.
func (b *Breaker) Do(call func() error) error {
	if err := b.before(); err != nil {
		return err
	}

	succeeded := false
	defer func() {
		if !succeeded {
			b.after(false)
		}
	}()

	err := call()
	succeeded = err == nil
	if succeeded {
		b.after(true)
	}
	return err
}

func (b *Breaker) cooledLocked() bool {
	return !b.settings.Now().Before(b.openedAt.Add(b.settings.Cooldown))
}

func (b *Breaker) before() error {
	b.mu.Lock()
	var from State
	changed := false

	switch b.state {
	case StateOpen:
		if !b.cooledLocked() {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		from, changed = b.state, true
		b.state = StateHalfOpen
		b.probing = true
	case StateHalfOpen:
		if b.probing {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.probing = true
	}
	b.mu.Unlock()

	if changed {
		b.notify(from, StateHalfOpen)
	}
	return nil
}

func (b *Breaker) after(success bool) {
	b.mu.Lock()
	from := b.state
	b.probing = false

	switch {
	case success:
		b.failures = 0
		b.state = StateClosed
	case from == StateHalfOpen:
		b.state = StateOpen
		b.openedAt = b.settings.Now()
	default:
		b.failures++
		if b.failures >= b.settings.Threshold {
			b.state = StateOpen
			b.openedAt = b.settings.Now()
		}
	}
	to := b.state
	b.mu.Unlock()

	if from != to {
		b.notify(from, to)
	}
}

func (b *Breaker) notify(from, to State) {
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
