// Package logging provides a minimal logging interface and adapters for agentrouter.
//
// The Logger interface defines the leveled methods (Debug, Info, Warn, Error)
// that the orchestrator, memory pool, tools and agents use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - RouterLogger with component / request scoping and domain helpers
//   - ToolCall, LLMCall and Routing, which use the RouterLogger helpers when
//     available and plain lines otherwise
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "json"})
//	router, err := agentrouter.New(cfg, func(o *agentrouter.Options) { o.Logger = logger })
//
// Arguments follow slog's alternating key/value convention.
package logging
