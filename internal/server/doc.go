// Package server wires the terminal session engine into an HTTP host.
//
// It builds every collaborator from configuration:
//   - settings provider with optional hot reload
//   - session store beside the settings file
//   - content store, link engine and activator
//   - remote surface registry and broadcast hub for panels
//   - the multiplexer, using remote surfaces for its sessions
//
// Then it mounts the REST handlers, the Prometheus endpoint and the
// WebSocket stream on a gin router with recovery, metrics, CORS and rate
// limiting middleware.
//
// Server Lifecycle:
//  1. New builds the graph; nothing is spawned yet
//  2. Run restores or creates sessions and listens
//  3. Cancelling the context shuts the listener down
//  4. Close disposes sessions and flushes the persisted layout
//
// Example Usage:
//
//	srv, err := server.New(server.Options{Config: config.LoadOrDefault()})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
