package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a case-insensitive level name onto a LogLevel. Unknown
// names yield LogLevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger defines the minimal logging interface for agentrouter.
// This allows users to provide their own logger implementation or use the built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// RouterLogger wraps slog.Logger adding component and request scoping plus
// domain helpers for tool calls, model calls and routing decisions. With*
// methods return copies; the receiver is never mutated.
type RouterLogger struct {
	logger    *slog.Logger
	level     LogLevel
	component string
	requestID string
	attrs     []slog.Attr
}

// LoggerConfig configures construction of a RouterLogger.
type LoggerConfig struct {
	Level     LogLevel
	Format    string // json or text
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stdout}
}

// NewLogger builds a RouterLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *RouterLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return &RouterLogger{logger: slog.New(handler), level: cfg.Level, component: cfg.Component}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *RouterLogger) clone() *RouterLogger {
	nl := *l
	nl.attrs = append([]slog.Attr(nil), l.attrs...)
	return &nl
}

// WithComponent sets the logical component (engine, memory, tool, agent, ...).
func (l *RouterLogger) WithComponent(c string) *RouterLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithRequest attaches a request identifier to every subsequent entry.
func (l *RouterLogger) WithRequest(requestID string) *RouterLogger {
	nl := l.clone()
	nl.requestID = requestID
	return nl
}

// WithContext adds a key/value attribute that will be attached to every log entry.
func (l *RouterLogger) WithContext(key string, value any) *RouterLogger {
	nl := l.clone()
	nl.attrs = append(nl.attrs, slog.Any(key, value))
	return nl
}

func (l *RouterLogger) baseAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.attrs)+2)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.requestID != "" {
		attrs = append(attrs, slog.String("request_id", l.requestID))
	}
	return append(attrs, l.attrs...)
}

func (l *RouterLogger) log(level LogLevel, msg string, attrs ...slog.Attr) {
	if level < l.level {
		return
	}
	l.logger.LogAttrs(context.Background(), slogLevel(level), msg, append(l.baseAttrs(), attrs...)...)
}

// kvAttrs converts slog-style alternating key/value arguments into attributes.
// A dangling value is recorded under "!BADKEY" the way slog does.
func kvAttrs(args []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(args)/2+1)
	for i := 0; i < len(args); i++ {
		switch a := args[i].(type) {
		case slog.Attr:
			attrs = append(attrs, a)
		case string:
			if i+1 >= len(args) {
				attrs = append(attrs, slog.String("!BADKEY", a))
				continue
			}
			attrs = append(attrs, slog.Any(a, args[i+1]))
			i++
		default:
			attrs = append(attrs, slog.Any("!BADKEY", a))
		}
	}
	return attrs
}

// Debug logs at debug level.
func (l *RouterLogger) Debug(msg string, args ...any) { l.log(LogLevelDebug, msg, kvAttrs(args)...) }

// Info logs at info level.
func (l *RouterLogger) Info(msg string, args ...any) { l.log(LogLevelInfo, msg, kvAttrs(args)...) }

// Warn logs at warn level.
func (l *RouterLogger) Warn(msg string, args ...any) { l.log(LogLevelWarn, msg, kvAttrs(args)...) }

// Error logs at error level.
func (l *RouterLogger) Error(msg string, args ...any) { l.log(LogLevelError, msg, kvAttrs(args)...) }

// LogToolCall records execution details for a tool invocation.
func (l *RouterLogger) LogToolCall(tool string, dur time.Duration, err error) {
	attrs := []slog.Attr{slog.String("tool_name", tool), slog.Duration("duration", dur), slog.Bool("success", err == nil)}
	if err != nil {
		l.log(LogLevelError, "tool.call.failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	l.log(LogLevelInfo, "tool.call.completed", attrs...)
}

// LogLLMCall records model call latency, token usage and success.
func (l *RouterLogger) LogLLMCall(model string, tokens int, dur time.Duration, err error) {
	attrs := []slog.Attr{slog.String("model", model), slog.Int("token_count", tokens), slog.Duration("duration", dur), slog.Bool("success", err == nil)}
	if err != nil {
		l.log(LogLevelError, "llm.call.failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	l.log(LogLevelInfo, "llm.call.completed", attrs...)
}

// LogRouting records a routing decision.
func (l *RouterLogger) LogRouting(expected, actual string, matched bool) {
	l.log(LogLevelDebug, "routing.decision",
		slog.String("expected", expected), slog.String("actual", actual), slog.Bool("matched", matched))
}

// DomainLogger is implemented by loggers with dedicated tool, model and
// routing events, such as RouterLogger.
type DomainLogger interface {
	LogToolCall(tool string, dur time.Duration, err error)
	LogLLMCall(model string, tokens int, dur time.Duration, err error)
	LogRouting(expected, actual string, matched bool)
}

var _ DomainLogger = (*RouterLogger)(nil)

// ToolCall records a finished tool invocation on l. Loggers without domain
// helpers receive the same event as a plain line.
func ToolCall(l Logger, tool string, dur time.Duration, err error) {
	if dl, ok := l.(DomainLogger); ok {
		dl.LogToolCall(tool, dur, err)
		return
	}
	l = OrNoOp(l)
	if err != nil {
		l.Error("tool.call.failed", "tool_name", tool, "duration", dur, "success", false, "error", err.Error())
		return
	}
	l.Info("tool.call.completed", "tool_name", tool, "duration", dur, "success", true)
}

// LLMCall records a finished model call on l.
func LLMCall(l Logger, model string, tokens int, dur time.Duration, err error) {
	if dl, ok := l.(DomainLogger); ok {
		dl.LogLLMCall(model, tokens, dur, err)
		return
	}
	l = OrNoOp(l)
	if err != nil {
		l.Error("llm.call.failed", "model", model, "token_count", tokens, "duration", dur, "success", false, "error", err.Error())
		return
	}
	l.Info("llm.call.completed", "model", model, "token_count", tokens, "duration", dur, "success", true)
}

// Routing records a routing decision on l.
func Routing(l Logger, expected, actual string, matched bool) {
	if dl, ok := l.(DomainLogger); ok {
		dl.LogRouting(expected, actual, matched)
		return
	}
	OrNoOp(l).Debug("routing.decision", "expected", expected, "actual", actual, "matched", matched)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// OrNoOp returns l, or a NoOpLogger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}
