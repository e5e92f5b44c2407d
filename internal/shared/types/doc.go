// Package types provides data structures shared by the engine and the host
// adapter: persisted session snapshots, session descriptions and API
// request bodies.
package types
