// Package cmd implements the termdock command line.
//
// Commands:
//   - serve: run the HTTP and WebSocket host adapter
//   - attach: run one session on the current terminal
//   - links: detect (and optionally resolve) links in text
//   - state show|clear: inspect or delete the persisted tab layout
//
// Configuration comes from the environment (see infrastructure/config);
// flags override it.
package cmd
