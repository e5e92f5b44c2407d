package links

import (
	"fmt"
	"sort"

	"github.com/GriffinCanCode/termdock/internal/infrastructure/monitoring"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
)

// Engine runs a fixed list of adapters over single lines of text.
type Engine struct {
	adapters []Adapter
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used to report adapter failures.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics counts detected links.
func WithMetrics(m *monitoring.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine. The adapter list is copied and never
// changes afterwards. A nil list selects DefaultAdapters.
func NewEngine(adapters []Adapter, opts ...EngineOption) *Engine {
	if adapters == nil {
		adapters = DefaultAdapters()
	}
	e := &Engine{
		adapters: append([]Adapter(nil), adapters...),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AdapterNames returns the adapter names in precedence order.
func (e *Engine) AdapterNames() []string {
	names := make([]string, len(e.adapters))
	for i, a := range e.adapters {
		names[i] = a.Name
	}
	return names
}

// FindLinks returns the non-overlapping links of line sorted by start.
func (e *Engine) FindLinks(line string) []Match {
	var all []Match
	for _, a := range e.adapters {
		all = append(all, e.run(a, line)...)
	}

	kept := Dedupe(all)
	for _, m := range kept {
		e.metrics.RecordLinkFound(string(m.Kind))
	}
	return kept
}

// run applies one adapter. A panicking extractor loses only its own
// candidates.
func (e *Engine) run(a Adapter, line string) (out []Match) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("link adapter failed",
				zap.String("adapter", a.Name),
				zap.String("panic", fmt.Sprint(r)))
			out = nil
		}
	}()

	for _, loc := range a.Pattern.FindAllStringSubmatchIndex(line, -1) {
		m, ok := a.Extract(line, loc)
		if !ok || m.Start < 0 || m.End > len(line) || m.Start >= m.End {
			continue
		}
		m.Kind = a.Kind
		m.Adapter = a.Name
		out = append(out, m)
	}
	return out
}

// Dedupe stable-sorts by start and keeps a match only when it starts at or
// after the end of the last kept one.
func Dedupe(matches []Match) []Match {
	sorted := append([]Match(nil), matches...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out []Match
	for _, m := range sorted {
		if len(out) == 0 || m.Start >= out[len(out)-1].End {
			out = append(out, m)
		}
	}
	return out
}

// Columns converts a match's byte span into display cells of line.
func Columns(line string, m Match) (start, end int) {
	start = runewidth.StringWidth(line[:m.Start])
	end = start + runewidth.StringWidth(line[m.Start:m.End])
	return start, end
}
