package upload

// State is the lifecycle position of a single upload
type State int

const (
	StatePending State = iota
	StateResolving
	StateStreaming
	StateFinalizing
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolving:
		return "resolving"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
