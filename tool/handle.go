package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentrouter/internal/util"
	"github.com/hupe1980/agentrouter/logging"
)

// Handle is a resolved tool with its dependencies bound. It holds no mutable
// state and is safe for concurrent use.
type Handle struct {
	desc   Descriptor
	deps   Deps
	logger logging.Logger
}

// Name returns the tool name.
func (h *Handle) Name() string { return h.desc.Name }

// Description returns the tool description.
func (h *Handle) Description() string { return h.desc.Description }

// Parameters returns the argument schema, possibly nil.
func (h *Handle) Parameters() map[string]any { return h.desc.Parameters }

// Call validates args and invokes the capability.
//
// Error semantics:
//
//	*ToolError returned by the capability -> forwarded unchanged
//	validation failure                    -> *ToolError{Code: VALIDATION_ERROR}
//	any other error                       -> *ToolError{Code: EXECUTION_ERROR}
func (h *Handle) Call(ctx context.Context, args map[string]any) (any, error) {
	start := time.Now()
	if args == nil {
		args = map[string]any{}
	}

	h.logger.Debug("tool.call.start", "tool", h.desc.Name)

	if err := util.ValidateParameters(args, h.desc.Parameters); err != nil {
		h.logger.Warn("tool.call.validation_failed", "tool", h.desc.Name, "error", err.Error())

		return nil, &ToolError{
			Tool:    h.desc.Name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	cc := &CallContext{ctx: ctx, tool: h.desc.Name, deps: h.deps, logger: h.logger}

	result, err := h.desc.Invoke(cc, args)
	if err != nil {
		logging.ToolCall(h.logger, h.desc.Name, time.Since(start), err)

		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			return nil, toolErr
		}

		return nil, &ToolError{
			Tool:    h.desc.Name,
			Message: err.Error(),
			Code:    CodeExecution,
		}
	}

	logging.ToolCall(h.logger, h.desc.Name, time.Since(start), nil)

	return result, nil
}
