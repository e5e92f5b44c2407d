package tab

// State is the lifecycle state of a session.
type State int32

const (
	StateUnstarted State = iota
	StateRunning
	StateExited
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	}
	return "unknown"
}
