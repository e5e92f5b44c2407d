package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig defines CORS configuration options.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// LoopbackOrigins are the origins accepted when none are configured. A
// trailing "*" matches any port.
var LoopbackOrigins = []string{
	"http://localhost",
	"http://localhost:*",
	"http://127.0.0.1",
	"http://127.0.0.1:*",
	"app://*",
}

// DefaultCORSConfig returns the CORS configuration for a local panel.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: LoopbackOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Accept",
			"Origin",
			"Cache-Control",
			"X-Requested-With",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORSConfigFor returns DefaultCORSConfig restricted to origins. Empty
// origins keep the loopback defaults.
func CORSConfigFor(origins []string) CORSConfig {
	cfg := DefaultCORSConfig()
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// CORS creates a CORS middleware with the provided configuration.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		AllowCredentials: cfg.AllowCredentials,
		AllowWildcard:    true,
		AllowOriginFunc: func(origin string) bool {
			return OriginAllowed(cfg.AllowOrigins, origin)
		},
		MaxAge: cfg.MaxAge,
	})
}

// OriginAllowed reports whether origin matches one of patterns. "*" matches
// everything and a trailing "*" matches any suffix. An empty origin, sent by
// non-browser clients, is always allowed.
func OriginAllowed(patterns []string, origin string) bool {
	if origin == "" {
		return true
	}
	for _, p := range patterns {
		switch {
		case p == "*":
			return true
		case strings.HasSuffix(p, "*"):
			if strings.HasPrefix(origin, strings.TrimSuffix(p, "*")) {
				return true
			}
		case p == origin:
			return true
		}
	}
	return false
}
