package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrouter/logging"
)

// Deps is the set of dependencies bound to one tool: exactly the names the
// tool declared in its descriptor.
type Deps map[string]any

// Dep returns the dependency registered under name as a T.
func Dep[T any](deps Deps, name string) (T, error) {
	var zero T

	v, ok := deps[name]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMissingDependency, name)
	}

	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("dependency %s has type %T, want %T", name, v, zero)
	}

	return t, nil
}

// CallContext is handed to a capability on every invocation.
type CallContext struct {
	ctx    context.Context
	tool   string
	deps   Deps
	logger logging.Logger
}

// Context returns the context of the invocation.
func (c *CallContext) Context() context.Context { return c.ctx }

// ToolName returns the name the capability was registered under.
func (c *CallContext) ToolName() string { return c.tool }

// Deps returns the dependencies bound to the tool.
func (c *CallContext) Deps() Deps { return c.deps }

// Logger returns the registry logger.
func (c *CallContext) Logger() logging.Logger { return c.logger }
