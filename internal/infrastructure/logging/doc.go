// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Logs go to stderr by default so that the attach command can own stdout
// for the shell session.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("session spawned", zap.Int("session", 1), zap.Int("pid", pid))
//	logger.Error("snapshot write failed", zap.Error(err))
package logging
