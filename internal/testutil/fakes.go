package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/agentrouter/core"
)

// StubAgent is a core.Agent returning a canned result or error.
type StubAgent struct {
	AgentKind core.AgentKind
	Result    core.Result
	Err       error
	// PanicWith, when non-nil, is raised from Execute.
	PanicWith any

	mu     sync.Mutex
	inputs []core.ExecutionInput
}

var _ core.Agent = (*StubAgent)(nil)

// NewStubAgent creates a stub of kind returning result.
func NewStubAgent(kind core.AgentKind, result core.Result) *StubAgent {
	return &StubAgent{AgentKind: kind, Result: result}
}

// Kind implements core.Agent.
func (s *StubAgent) Kind() core.AgentKind { return s.AgentKind }

// Execute implements core.Agent.
func (s *StubAgent) Execute(ctx context.Context, in core.ExecutionInput) (core.Result, error) {
	s.mu.Lock()
	s.inputs = append(s.inputs, in)
	s.mu.Unlock()

	if s.PanicWith != nil {
		panic(s.PanicWith)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Result, nil
}

// Inputs returns every execution input received so far.
func (s *StubAgent) Inputs() []core.ExecutionInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ExecutionInput(nil), s.inputs...)
}

// Calls returns the number of Execute calls.
func (s *StubAgent) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs)
}

// RecordingRecorder is a core.RoutingRecorder that keeps every outcome.
type RecordingRecorder struct {
	mu      sync.Mutex
	matched []bool
}

var _ core.RoutingRecorder = (*RecordingRecorder)(nil)

// RecordRouting implements core.RoutingRecorder.
func (r *RecordingRecorder) RecordRouting(matched bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matched = append(r.matched, matched)
}

// Outcomes returns the recorded matched flags in order.
func (r *RecordingRecorder) Outcomes() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.matched...)
}

// CountingEncoder implements both encoder interfaces with a fixed vector and
// counts calls per path.
type CountingEncoder struct {
	Vector core.Embedding
	Err    error

	textCalls  atomic.Int64
	imageCalls atomic.Int64
}

var (
	_ core.TextEncoder  = (*CountingEncoder)(nil)
	_ core.ImageEncoder = (*CountingEncoder)(nil)
)

// NewCountingEncoder returns an encoder producing vec.
func NewCountingEncoder(vec ...float32) *CountingEncoder {
	return &CountingEncoder{Vector: vec}
}

// EncodeText implements core.TextEncoder.
func (e *CountingEncoder) EncodeText(ctx context.Context, _ string) (core.Embedding, error) {
	e.textCalls.Add(1)
	return e.result(ctx)
}

// EncodeImage implements core.ImageEncoder.
func (e *CountingEncoder) EncodeImage(ctx context.Context, _ string) (core.Embedding, error) {
	e.imageCalls.Add(1)
	return e.result(ctx)
}

func (e *CountingEncoder) result(ctx context.Context) (core.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Vector.Clone(), nil
}

// TextCalls returns the number of EncodeText calls.
func (e *CountingEncoder) TextCalls() int { return int(e.textCalls.Load()) }

// ImageCalls returns the number of EncodeImage calls.
func (e *CountingEncoder) ImageCalls() int { return int(e.imageCalls.Load()) }
