// Package config provides 12-factor configuration management for termdock.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables. User-editable terminal
// preferences (shell, cwd policy, copy-on-select...) live in the settings
// provider instead, since they are persisted and hot-reloaded.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Terminal: state directory, content root, output backlog, default size
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("listening on %s\n", cfg.Server.Addr())
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - TERMDOCK_STATE_DIR, TERMDOCK_CONTENT_ROOT, TERMDOCK_SETTINGS_FILE
//   - TERMDOCK_OUTPUT_BACKLOG, TERMDOCK_DEFAULT_COLS, TERMDOCK_DEFAULT_ROWS
package config
