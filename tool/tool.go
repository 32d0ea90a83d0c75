// Package tool implements the tool registry: a dependency-injection container
// that tool plugins register capabilities against. Each capability declares the
// shared dependencies it needs (database handle, LLM client, vector store, ...)
// and is handed exactly those when invoked through a resolved Handle.
package tool

import (
	"errors"
	"fmt"

	"github.com/hupe1980/agentrouter/internal/util"
)

// Well-known dependency names populated by the router at startup.
const (
	DepConfig      = "config"
	DepCLIPClient  = "clip_client"
	DepDBEngine    = "db_engine"
	DepModelClient = "model_client"
	DepLLM         = "llm"
	DepVectorDB    = "vector_db"
)

var (
	// ErrMissingDependency is wrapped by *MissingDependencyError.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrUnknownTool is wrapped by *UnknownToolError.
	ErrUnknownTool = errors.New("unknown tool")
)

// MissingDependencyError reports the first declared dependency of a tool that
// the registry does not hold.
type MissingDependencyError struct {
	Tool       string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("tool %q requires dependency %q: %v", e.Tool, e.Dependency, ErrMissingDependency)
}

func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }

// UnknownToolError is returned by Resolve for names that were never registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q: %v", e.Name, ErrUnknownTool)
}

func (e *UnknownToolError) Unwrap() error { return ErrUnknownTool }

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
