// Package ws connects panels to session surfaces over WebSocket.
//
// Every session of a served multiplexer renders to a Remote surface created
// by the Registry. A Remote mirrors output into a headless line buffer and
// queues it, with display commands, in a bounded Backlog until a panel
// attaches to GET /ws/sessions/:id. The Hub fans clipboard writes, notices
// and open requests out to every connected panel.
//
// Message Types (Client → Server):
//   - input, paste: {data} typed or pasted text
//   - resize: {cols, rows}
//   - selection: {text} current selection
//   - key: {event} keydown forwarded for shortcut handling
//   - lines: {start, lines} rendered line text
//   - links: {line, text?} request the links of a line
//   - activate: {line, index} activate a link returned by links
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - output: {data} raw output bytes, base64 encoded
//   - reset, clear, show, hide, focus: display commands
//   - options: {payload} appearance options
//   - links: {payload: {line, links}}
//   - clipboard: {data} text to copy
//   - open: {payload} entry or link text to open
//   - notice: {message} transient notification
//   - pong, error
//
// Example Usage:
//
//	registry := ws.NewRegistry(ws.RegistryOptions{Backlog: cfg.Terminal.OutputBacklog})
//	handler := ws.NewHandler(registry, hub, nil, logger, metrics)
//	router.GET("/ws/sessions/:id", handler.HandleSession)
package ws
