// Package http provides the REST API of the termdock host adapter.
//
// Handlers expose one multiplexer:
//   - GET /, GET /health, GET /metrics/json
//   - GET /sessions, POST /sessions, DELETE /sessions/:id
//   - POST /sessions/:id/activate, /restart, /input, /drop
//   - POST /sessions/:id/entries, /entries/append
//   - GET /snapshot
//   - POST /links/find, POST /links/resolve
//
// Domain errors map to status codes: unknown sessions and entries are 404,
// refused state changes such as closing the last session are 409, and a
// closed multiplexer is 503.
package http
