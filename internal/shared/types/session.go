package types

// SnapshotVersion is the schema version of persisted session state.
const SnapshotVersion = 1

// SessionSnapshot is the persisted form of one session.
type SessionSnapshot struct {
	ID  int    `json:"id"`
	Cwd string `json:"cwd"`
}

// SessionSetSnapshot is the persisted layout of a multiplexer.
type SessionSetSnapshot struct {
	Version     int               `json:"version"`
	Tabs        []SessionSnapshot `json:"tabs"`
	ActiveTabID int               `json:"activeTabId"`
}

// SessionInfo describes a live session.
type SessionInfo struct {
	ID      int    `json:"id"`
	Cwd     string `json:"cwd"`
	Dir     string `json:"dir"`
	State   string `json:"state"`
	Pid     int    `json:"pid,omitempty"`
	Active  bool   `json:"active"`
	Mounted bool   `json:"mounted"`
}
