// Package middleware provides the HTTP middleware of the termdock host
// adapter.
//
// Middleware stack includes:
//   - CORS: cross-origin resource sharing, loopback origins by default
//   - RateLimit: per-IP token bucket rate limiting with idle eviction
//   - GlobalRateLimit: one token bucket for every client
//
// OriginAllowed applies the same origin rules to WebSocket upgrades.
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.CORSConfigFor(cfg.Server.AllowedOrigins)))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
