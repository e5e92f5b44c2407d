package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between two delivered notices.
const DefaultInterval = 2 * time.Second

// Notifier shows a transient, user-facing message.
type Notifier interface {
	Notify(message string)
}

// Func adapts a function to Notifier.
type Func func(message string)

// Notify implements Notifier.
func (f Func) Notify(message string) { f(message) }

// Nop discards every notice.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(string) {}

// Limited forwards at most one notice per interval to the wrapped sink and
// drops the rest.
type Limited struct {
	sink    Notifier
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewLimited wraps sink with a limiter allowing one notice per interval.
// A zero interval means DefaultInterval.
func NewLimited(sink Notifier, interval time.Duration, logger *zap.Logger) *Limited {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if sink == nil {
		sink = Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limited{
		sink:    sink,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
	}
}

// Notify implements Notifier.
func (l *Limited) Notify(message string) {
	if !l.limiter.Allow() {
		l.logger.Debug("notice suppressed", zap.String("message", message))
		return
	}
	l.sink.Notify(message)
}

// Channels separates informational notices from failure notices. Only
// failures are rate limited, so a burst of confirmations never hides an
// error.
type Channels struct {
	Info     Notifier
	Failures Notifier
}

// NewChannels delivers both channels to sink, limiting failures to one
// per interval.
func NewChannels(sink Notifier, interval time.Duration, logger *zap.Logger) Channels {
	if sink == nil {
		sink = Nop{}
	}
	return Channels{
		Info:     sink,
		Failures: NewLimited(sink, interval, logger),
	}
}

// Recorder keeps delivered notices in memory. Hosts without a native
// notification surface drain it; tests inspect it.
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

// Notify implements Notifier.
func (r *Recorder) Notify(message string) {
	r.mu.Lock()
	r.messages = append(r.messages, message)
	r.mu.Unlock()
}

// Messages returns a copy of the recorded notices.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	copy(out, r.messages)
	return out
}
