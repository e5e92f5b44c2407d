// Package main is the entry point for termdock.
//
// termdock runs shell sessions in pseudo-terminals and serves them to
// rendering panels, or attaches one directly to the current terminal.
//
// Usage:
//
//	# Serve sessions on 127.0.0.1:8000
//	termdock serve
//
//	# Development logging, custom port, content store
//	termdock serve --dev -p 9000 --content-root ~/vault
//
//	# Run a shell here, Ctrl+] detaches
//	termdock attach --cwd ~/src
//
//	# Find links in a build log
//	termdock links build.log
//
//	# Inspect or reset the restored layout
//	termdock state show
//	termdock state clear
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags override the environment
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown of serve
package main
