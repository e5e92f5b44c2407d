package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsIsolatedRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordSpawn("ok")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.ProcessesActive))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ProcessesActive))
}

func TestSpawnAndExitAccounting(t *testing.T) {
	m := NewMetrics()

	m.RecordSpawn("ok")
	m.RecordSpawn("ok")
	m.RecordSpawn("error")
	m.RecordExit(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SpawnsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SpawnsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProcessesActive))
	assert.Equal(t, int64(1), m.Snapshot().ActiveProcesses)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordSpawn("ok")
		m.RecordExit(1)
		m.AddOutputBytes(10)
		m.AddBacklogDropped(5)
		m.RecordLinkFound("url")
		m.IncWSConnections()
		NewTimer(m, "storage", "write").StopErr(errors.New("boom"))
	})
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
}

func TestMiddlewareRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/7", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/sessions/:id", "404")))
	assert.Equal(t, int64(1), m.Snapshot().TotalErrors)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "termdock_http_requests_total")
}
