package terminal

import "sync"

// Subscription delivers one spawn's output and exit to a consumer until it
// is disposed. Dispose waits for an in-flight delivery, so once it returns
// no further callback runs.
//
// Callbacks run on the process reader goroutine and must not block on
// locks held by whoever calls Dispose.
type Subscription struct {
	mu     sync.Mutex
	active bool
	onData func([]byte)
	onExit func(int)
}

// NewSubscription creates an active subscription. Either callback may be nil.
func NewSubscription(onData func([]byte), onExit func(code int)) *Subscription {
	return &Subscription{active: true, onData: onData, onExit: onExit}
}

// Data delivers output if the subscription is still active.
func (s *Subscription) Data(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active && s.onData != nil {
		s.onData(p)
	}
}

// Exit delivers the exit code if the subscription is still active.
func (s *Subscription) Exit(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active && s.onExit != nil {
		s.onExit(code)
	}
}

// Dispose stops delivery. Safe to call more than once.
func (s *Subscription) Dispose() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// Active reports whether callbacks are still delivered.
func (s *Subscription) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
