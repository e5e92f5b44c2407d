package tracing

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/termdock/internal/shared/id"
)

// ContextKey is the gin context key holding the request ID.
const ContextKey = "request_id"

// Middleware tags every request with an ID and logs it once finished.
// A valid X-Request-ID from the caller is kept; otherwise a new one is
// generated. The ID is echoed in the response header.
func Middleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		rid, ok := inbound(c.GetHeader(Header))
		if !ok {
			rid = id.NewRequestID()
		}
		c.Set(ContextKey, rid)
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), rid))
		c.Header(Header, rid.String())

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields := []zap.Field{
			zap.String("request_id", rid.String()),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			logger.Warn("request failed", append(fields, zap.String("error", c.Errors.Last().Error()))...)
			return
		}
		logger.Debug("request", fields...)
	}
}
