package types

// TaskState tracks where a task is in its lifecycle.
type TaskState int

const (
	StateCreated TaskState = iota
	StateProbing
	StateSingleStream
	StatePartitioned
	StateFetching
	StateMerging
	StateVerifying
	StateFailed
	StateSucceeded
)

var stateNames = map[TaskState]string{
	StateCreated:      "created",
	StateProbing:      "probing",
	StateSingleStream: "single-stream",
	StatePartitioned:  "partitioned",
	StateFetching:     "fetching",
	StateMerging:      "merging",
	StateVerifying:    "verifying",
	StateFailed:       "failed",
	StateSucceeded:    "succeeded",
}

func (s TaskState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition is allowed.
func (s TaskState) Terminal() bool {
	return s == StateFailed || s == StateSucceeded
}

// CanTransition reports whether moving from s to next is a legal step.
func (s TaskState) CanTransition(next TaskState) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case StateCreated:
		return next == StateProbing
	case StateProbing:
		return next == StateSingleStream || next == StatePartitioned || next == StateFailed
	case StateSingleStream, StatePartitioned:
		return next == StateFetching || next == StateFailed
	case StateFetching:
		// single-stream writes straight to the destination and skips merging
		return next == StateMerging || next == StateVerifying || next == StateFailed || next == StateSucceeded
	case StateMerging:
		return next == StateVerifying || next == StateFailed || next == StateSucceeded
	case StateVerifying:
		return next == StateFailed || next == StateSucceeded
	}
	return false
}
