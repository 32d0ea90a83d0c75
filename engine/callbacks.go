package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentrouter/core"
)

// CallbackType defines the lifecycle points where callbacks run.
type CallbackType string

const (
	// CallbackBeforeAgent runs after routing, before the agent executes.
	// An error aborts the request.
	CallbackBeforeAgent CallbackType = "before_agent"

	// CallbackAfterAgent runs after a successful execution, before the
	// result is persisted. An error aborts the request.
	CallbackAfterAgent CallbackType = "after_agent"

	// CallbackOnError runs once when a request enters the ERROR state.
	CallbackOnError CallbackType = "on_error"

	// CallbackOnStateChange runs on every state transition.
	CallbackOnStateChange CallbackType = "on_state_change"
)

// CallbackContext carries the request data visible at a lifecycle point.
// Fields that are not yet known at that point are zero.
type CallbackContext struct {
	RequestID    string
	Request      core.Request
	State        State
	CallbackType CallbackType
	Outcome      core.RoutingOutcome
	Result       core.Result
	Err          error
}

// Callback defines the interface for execution lifecycle hooks.
//
// Callbacks run synchronously on the request goroutine and must be safe for
// concurrent use.
type Callback interface {
	Type() CallbackType
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	cb := NewFunctionCallback(CallbackBeforeAgent, func(ctx context.Context, cc *CallbackContext) error {
//	    if cc.Outcome.Actual == "operation" && !allowed(ctx) {
//	        return errors.New("operation agent disabled")
//	    }
//	    return nil
//	})
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{callbackType: callbackType, fn: fn}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType { return c.callbackType }

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager holds callbacks by type. Registration and execution may
// happen concurrently.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{callbacks: make(map[CallbackType][]Callback)}
}

// RegisterCallback appends cb to the callbacks of its type.
func (cm *CallbackManager) RegisterCallback(cb Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks[cb.Type()] = append(cm.callbacks[cb.Type()], cb)
}

// Count returns the number of callbacks registered for t.
func (cm *CallbackManager) Count(t CallbackType) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.callbacks[t])
}

// ExecuteCallbacks runs the callbacks of type t in registration order and
// stops at the first error.
func (cm *CallbackManager) ExecuteCallbacks(ctx context.Context, t CallbackType, cc *CallbackContext) error {
	cm.mu.RLock()
	cbs := cm.callbacks[t]
	cm.mu.RUnlock()

	if len(cbs) == 0 {
		return nil
	}

	cc.CallbackType = t
	for _, cb := range cbs {
		if err := cb.Execute(ctx, cc); err != nil {
			return fmt.Errorf("%s callback failed: %w", t, err)
		}
	}

	return nil
}
