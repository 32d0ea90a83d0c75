package engine

import "fmt"

// State is a step of the request lifecycle.
type State int

const (
	StateReceived State = iota
	StateEmbedded
	StateMemoryJoined
	StateRouted
	StateExecuted
	StatePersisted
	StateReported
	StateResponded
	StateError
)

var stateNames = [...]string{
	StateReceived:     "RECEIVED",
	StateEmbedded:     "EMBEDDED",
	StateMemoryJoined: "MEMORY_JOINED",
	StateRouted:       "ROUTED",
	StateExecuted:     "EXECUTED",
	StatePersisted:    "PERSISTED",
	StateReported:     "REPORTED",
	StateResponded:    "RESPONDED",
	StateError:        "ERROR",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == StateResponded || s == StateError }

// StateObserver is notified of every transition of every request.
type StateObserver func(requestID string, s State)
