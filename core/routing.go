package core

// RoutingOutcome records whether the resolved agent matched the requested
// category. It is produced once per request and never persisted.
type RoutingOutcome struct {
	Expected string // Normalized requested type key
	Actual   string // Kind of the agent that was selected
	Matched  bool
}

// RoutingRecorder receives routing outcomes. Implementations must not block
// and must not panic into the caller.
type RoutingRecorder interface {
	RecordRouting(matched bool)
}

// NoOpRecorder discards routing outcomes.
type NoOpRecorder struct{}

// RecordRouting implements RoutingRecorder.
func (NoOpRecorder) RecordRouting(bool) {}
