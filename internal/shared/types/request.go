package types

// CreateSessionRequest opens a new session.
type CreateSessionRequest struct {
	Cwd string `json:"cwd,omitempty"`
}

// RestartRequest restarts a session, optionally in another directory.
type RestartRequest struct {
	Cwd string `json:"cwd,omitempty"`
}

// InputRequest writes data to a session's shell.
type InputRequest struct {
	Data string `json:"data" binding:"required"`
}

// FindLinksRequest scans text for links.
type FindLinksRequest struct {
	Text string `json:"text"`
}

// WSMessage is a server to client WebSocket message.
type WSMessage struct {
	Type    string      `json:"type"`
	Data    string      `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// DropRequest inserts dropped files into a session's prompt. Paths are
// external files; Data is an internal drag payload.
type DropRequest struct {
	Paths []string `json:"paths,omitempty"`
	Data  string   `json:"data,omitempty"`
}

// AppendEntryRequest appends a session's selection to a content entry.
type AppendEntryRequest struct {
	Path string `json:"path" binding:"required"`
}
