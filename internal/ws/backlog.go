package ws

import "sync"

// DefaultBacklog is the per-session output backlog in bytes.
const DefaultBacklog = 1 << 20

// Backlog is a thread-safe circular buffer of undelivered output. When full
// it drops the oldest bytes. Positions are absolute byte offsets since the
// backlog was created, so control messages can be ordered against output.
type Backlog struct {
	mu      sync.Mutex
	data    []byte
	size    int
	head    int
	n       int
	written uint64
	dropped uint64
}

// NewBacklog creates a backlog of size bytes. A non-positive size selects
// DefaultBacklog.
func NewBacklog(size int) *Backlog {
	if size <= 0 {
		size = DefaultBacklog
	}
	return &Backlog{
		data: make([]byte, size),
		size: size,
	}
}

// Write appends p and returns how many older bytes were dropped to make
// room.
func (b *Backlog) Write(p []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.written += uint64(len(p))
	dropped := 0
	if len(p) >= b.size {
		dropped = b.n + len(p) - b.size
		p = p[len(p)-b.size:]
		b.head, b.n = 0, 0
	} else if over := b.n + len(p) - b.size; over > 0 {
		b.head = (b.head + over) % b.size
		b.n -= over
		dropped = over
	}

	tail := (b.head + b.n) % b.size
	k := copy(b.data[tail:], p)
	copy(b.data, p[k:])
	b.n += len(p)
	b.dropped += uint64(dropped)
	return dropped
}

// ReadUntil removes and returns buffered bytes whose position is before pos.
func (b *Backlog) ReadUntil(pos uint64) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readLocked(pos)
}

// ReadAll removes and returns everything buffered.
func (b *Backlog) ReadAll() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readLocked(b.written)
}

func (b *Backlog) readLocked(pos uint64) []byte {
	start := b.written - uint64(b.n)
	if pos <= start || b.n == 0 {
		return nil
	}
	k := b.n
	if d := pos - start; d < uint64(k) {
		k = int(d)
	}

	out := make([]byte, k)
	c := copy(out, b.data[b.head:min(b.head+k, b.size)])
	copy(out[c:], b.data[:k-c])
	b.head = (b.head + k) % b.size
	b.n -= k
	return out
}

// Discard drops everything buffered without counting it as dropped.
func (b *Backlog) Discard() {
	b.mu.Lock()
	b.head = (b.head + b.n) % b.size
	b.n = 0
	b.mu.Unlock()
}

// Len returns the number of buffered bytes.
func (b *Backlog) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

// Written returns the absolute position after the last written byte.
func (b *Backlog) Written() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written
}

// Dropped returns the total number of bytes dropped for lack of room.
func (b *Backlog) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
