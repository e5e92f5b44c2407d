// Package tracing tags HTTP requests with a request ID so log lines from
// one API call can be correlated. IDs come from shared/id (req_<ulid>)
// unless the caller supplies a usable X-Request-ID.
package tracing
