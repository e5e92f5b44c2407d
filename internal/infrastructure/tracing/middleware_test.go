package tracing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/termdock/internal/shared/id"
)

func newRouter(logger *zap.Logger, seen *id.RequestID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(logger))
	r.GET("/sessions/:id", func(c *gin.Context) {
		*seen = RequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Status(http.StatusInternalServerError)
	})
	return r
}

func TestMiddlewareGeneratesID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var seen id.RequestID
	r := newRouter(zap.New(core), &seen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/3", nil))

	got := w.Header().Get(Header)
	require.True(t, strings.HasPrefix(got, "req_"), got)
	assert.True(t, id.IsValid(got))
	assert.Equal(t, id.RequestID(got), seen)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/sessions/:id", fields["route"])
	assert.Equal(t, int64(http.StatusNoContent), fields["status"])
	assert.Equal(t, got, fields["request_id"])
}

func TestMiddlewareKeepsInboundID(t *testing.T) {
	var seen id.RequestID
	r := newRouter(nil, &seen)

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "printable", header: "abc-123", keep: true},
		{name: "with space", header: "abc 123", keep: false},
		{name: "too long", header: strings.Repeat("x", maxInboundLen+1), keep: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/sessions/1", nil)
			req.Header.Set(Header, tt.header)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if tt.keep {
				assert.Equal(t, tt.header, w.Header().Get(Header))
			} else {
				assert.NotEqual(t, tt.header, w.Header().Get(Header))
				assert.True(t, strings.HasPrefix(w.Header().Get(Header), "req_"))
			}
		})
	}
}

func TestMiddlewareLogsErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var seen id.RequestID
	r := newRouter(zap.New(core), &seen)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, assert.AnError.Error(), entries[0].ContextMap()["error"])
}

func TestRequestIDMissing(t *testing.T) {
	assert.Empty(t, RequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
