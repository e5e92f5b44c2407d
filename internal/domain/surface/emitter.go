package surface

import (
	"slices"
	"sync"
)

// Emitter is a small event registry for surface implementations.
type Emitter[T any] struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func(T)
}

// Subscribe adds h and returns its registration.
func (e *Emitter[T]) Subscribe(h func(T)) Disposable {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[int]func(T))
	}
	id := e.next
	e.next++
	e.handlers[id] = h
	return DisposeFunc(func() {
		e.mu.Lock()
		delete(e.handlers, id)
		e.mu.Unlock()
	})
}

// Emit calls every handler in registration order.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	ids := make([]int, 0, len(e.handlers))
	for id := range e.handlers {
		ids = append(ids, id)
	}
	hs := make([]func(T), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		hs = append(hs, e.handlers[id])
	}
	e.mu.Unlock()

	for _, h := range hs {
		h(v)
	}
}

// Len returns the number of live handlers.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}

// Reset drops every handler.
func (e *Emitter[T]) Reset() {
	e.mu.Lock()
	e.handlers = nil
	e.mu.Unlock()
}
