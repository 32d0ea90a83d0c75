package core

import (
	"context"
	"fmt"
	"strings"
)

// AgentKind is the closed set of agent categories a request can be routed to.
type AgentKind int

const (
	// KindMarketing handles promotion, campaign and competitive analysis requests.
	KindMarketing AgentKind = iota
	// KindOperation handles operational and data questions (reports, forecasts, SQL).
	KindOperation
	// KindResearch handles market and investment research requests.
	KindResearch
)

// AllAgentKinds lists every known kind in declaration order.
var AllAgentKinds = []AgentKind{KindMarketing, KindOperation, KindResearch}

// String returns the routing key of the kind.
func (k AgentKind) String() string {
	switch k {
	case KindMarketing:
		return "marketing"
	case KindOperation:
		return "operation"
	case KindResearch:
		return "research"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// NormalizeTypeKey lower-cases and trims a declared type key.
func NormalizeTypeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// ParseAgentKind maps a type key onto an AgentKind. Keys are normalized
// first; the boolean is false for unknown keys.
func ParseAgentKind(key string) (AgentKind, bool) {
	switch NormalizeTypeKey(key) {
	case "marketing":
		return KindMarketing, true
	case "operation":
		return KindOperation, true
	case "research":
		return KindResearch, true
	default:
		return 0, false
	}
}

// ExecutionInput is handed to an agent for a single request.
type ExecutionInput struct {
	Query  string           // User query text
	Memory []map[string]any // Retrieved prior interactions, most similar first
	Trace  []TraceStep      // Intermediate steps (empty on entry)
}

// TraceStep records one intermediate action taken by an agent.
type TraceStep struct {
	Action      string `json:"action"`
	Input       any    `json:"input,omitempty"`
	Observation any    `json:"observation,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Agent is an execution unit specialized for one request category.
//
// Implementations must be safe for concurrent use: the same agent instance
// serves every request routed to its kind.
type Agent interface {
	// Kind returns the declared category of the agent.
	Kind() AgentKind
	// Execute runs the agent workflow. Long running; must honor ctx.
	Execute(ctx context.Context, in ExecutionInput) (Result, error)
}
