package agent

import (
	"errors"
	"fmt"

	"github.com/hupe1980/agentrouter/core"
)

// ErrFallbackMissing is returned when the fallback kind has no agent.
var ErrFallbackMissing = errors.New("fallback agent not registered")

// Dispatcher selects an agent by declared type key. Its mapping is fixed at
// construction and Select is lock-free.
type Dispatcher struct {
	agents   map[core.AgentKind]core.Agent
	fallback core.Agent
}

// NewDispatcher creates a dispatcher over agents, falling back to the agent
// registered for fallback on unknown keys. Every agent must be registered
// under its own kind.
func NewDispatcher(agents map[core.AgentKind]core.Agent, fallback core.AgentKind) (*Dispatcher, error) {
	copied := make(map[core.AgentKind]core.Agent, len(agents))
	for kind, a := range agents {
		if a == nil {
			return nil, fmt.Errorf("agent for kind %s is nil", kind)
		}
		if a.Kind() != kind {
			return nil, fmt.Errorf("agent of kind %s registered under %s", a.Kind(), kind)
		}
		copied[kind] = a
	}

	fb, ok := copied[fallback]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFallbackMissing, fallback)
	}

	return &Dispatcher{agents: copied, fallback: fb}, nil
}

// Select returns the agent for typeKey (normalized), or the fallback agent for
// unknown keys. The outcome reports whether the key named the selected agent.
func (d *Dispatcher) Select(typeKey string) (core.Agent, core.RoutingOutcome) {
	key := core.NormalizeTypeKey(typeKey)

	selected := d.fallback
	if kind, ok := core.ParseAgentKind(key); ok {
		if a, ok := d.agents[kind]; ok {
			selected = a
		}
	}

	actual := selected.Kind().String()

	return selected, core.RoutingOutcome{
		Expected: key,
		Actual:   actual,
		Matched:  key == actual,
	}
}

// Fallback returns the default agent.
func (d *Dispatcher) Fallback() core.Agent { return d.fallback }

// Kinds returns the registered kinds in declaration order.
func (d *Dispatcher) Kinds() []core.AgentKind {
	kinds := make([]core.AgentKind, 0, len(d.agents))
	for _, k := range core.AllAgentKinds {
		if _, ok := d.agents[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
