package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
//
// Every method is safe to call on a nil *Metrics, so components can take an
// optional collector without guarding each call site.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec

	// Process metrics
	SpawnsTotal      *prometheus.CounterVec
	ProcessesActive  prometheus.Gauge
	ProcessExits     *prometheus.CounterVec
	OutputBytes      prometheus.Counter
	BacklogDropBytes prometheus.Counter

	// Session metrics
	SessionsActive   prometheus.Gauge
	SessionsSaved    prometheus.Counter
	SessionsRestored prometheus.Counter

	// Link metrics
	LinksFound     *prometheus.CounterVec
	LinksActivated *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveProcesses   int64   `json:"active_processes"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector backed by its own registry, so
// several collectors can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termdock_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termdock_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		// Service metrics
		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termdock_service_calls_total",
				Help: "Total number of internal service calls",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termdock_service_duration_seconds",
				Help:    "Internal service call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "method"},
		),

		// Process metrics
		SpawnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termdock_spawns_total",
				Help: "Total number of shell spawn attempts",
			},
			[]string{"result"},
		),
		ProcessesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termdock_processes_active",
				Help: "Number of live shell processes",
			},
		),
		ProcessExits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termdock_process_exits_total",
				Help: "Total number of shell exits by outcome",
			},
			[]string{"outcome"},
		),
		OutputBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "termdock_output_bytes_total",
				Help: "Total bytes read from shell processes",
			},
		),
		BacklogDropBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "termdock_backlog_dropped_bytes_total",
				Help: "Output bytes dropped because a remote surface lagged",
			},
		),

		// Session metrics
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termdock_sessions_active",
				Help: "Number of open sessions",
			},
		),
		SessionsSaved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "termdock_sessions_saved_total",
				Help: "Total number of session snapshots written",
			},
		),
		SessionsRestored: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "termdock_sessions_restored_total",
				Help: "Total number of sessions restored from a snapshot",
			},
		),

		// Link metrics
		LinksFound: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termdock_links_found_total",
				Help: "Total number of link spans detected",
			},
			[]string{"kind"},
		),
		LinksActivated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termdock_links_activated_total",
				Help: "Total number of link activations by action",
			},
			[]string{"action"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "termdock_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termdock_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "termdock_uptime_seconds",
			Help: "Uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing this collector's registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records an internal service call
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordSpawn records a spawn attempt. result is "ok" or "error".
func (m *Metrics) RecordSpawn(result string) {
	if m == nil {
		return
	}
	m.SpawnsTotal.WithLabelValues(result).Inc()
	if result == "ok" {
		m.ProcessesActive.Inc()
		m.mu.Lock()
		m.snapshot.ActiveProcesses++
		m.mu.Unlock()
	}
}

// RecordExit records a process exit for a previously successful spawn.
func (m *Metrics) RecordExit(code int) {
	if m == nil {
		return
	}
	outcome := "success"
	if code != 0 {
		outcome = "failure"
	}
	m.ProcessExits.WithLabelValues(outcome).Inc()
	m.ProcessesActive.Dec()
	m.mu.Lock()
	m.snapshot.ActiveProcesses--
	m.mu.Unlock()
}

// AddOutputBytes counts bytes read from a shell.
func (m *Metrics) AddOutputBytes(n int) {
	if m == nil {
		return
	}
	m.OutputBytes.Add(float64(n))
}

// AddBacklogDropped counts output bytes discarded by a lagging consumer.
func (m *Metrics) AddBacklogDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BacklogDropBytes.Add(float64(n))
}

// SetSessionsActive sets the number of open sessions
func (m *Metrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(count))
}

// IncSessionsSaved increments the snapshots written counter
func (m *Metrics) IncSessionsSaved() {
	if m == nil {
		return
	}
	m.SessionsSaved.Inc()
}

// AddSessionsRestored adds to the restored sessions counter
func (m *Metrics) AddSessionsRestored(n int) {
	if m == nil {
		return
	}
	m.SessionsRestored.Add(float64(n))
}

// RecordLinkFound counts a detected link span by kind.
func (m *Metrics) RecordLinkFound(kind string) {
	if m == nil {
		return
	}
	m.LinksFound.WithLabelValues(kind).Inc()
}

// RecordLinkActivated counts a link activation by resolved action.
func (m *Metrics) RecordLinkActivated(action string) {
	if m == nil {
		return
	}
	m.LinksActivated.WithLabelValues(action).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns the current values tracked for the JSON API.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
