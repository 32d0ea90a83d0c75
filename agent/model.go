package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/internal/util"
	"github.com/hupe1980/agentrouter/logging"
	"github.com/hupe1980/agentrouter/model"
	"github.com/hupe1980/agentrouter/tool"
)

// ErrEmptyQuery is returned when an agent is executed without query text.
var ErrEmptyQuery = errors.New("empty query")

// DefaultTools returns the registry tool names an agent of kind calls by default.
func DefaultTools(kind core.AgentKind) []string {
	switch kind {
	case core.KindResearch:
		return []string{"rag"}
	case core.KindOperation:
		return []string{"nl2sql", "forecast"}
	case core.KindMarketing:
		return []string{"rag", "report"}
	default:
		return nil
	}
}

const promptTemplate = `{{if .Memory}}Relevant past interactions:
{{range $i, $m := .Memory}}{{inc $i}}. Q: {{$m.Query}}
   A: {{$m.Answer}}
{{end}}
{{end}}{{if .Observations}}Tool results:
{{range .Observations}}- {{.Action}}: {{json .Observation}}
{{end}}
{{end}}{{if .Advertised}}Other available tools: {{join ", " .Advertised}}

{{end}}Request: {{.Query}}`

// ModelAgentOptions configures a ModelAgent instance.
type ModelAgentOptions struct {
	Instruction Instruction
	// Tools are resolved from the registry on every execution.
	Tools []string
	// ToolTimeout bounds each tool call (0 = only the request context).
	ToolTimeout time.Duration
	// MaxMemory caps the memory entries rendered into the prompt.
	MaxMemory int
	Logger    logging.Logger
}

// ModelAgent answers requests of one kind with a language model, enriched by
// memory and registry tools. It holds no per-request state and is safe for
// concurrent use.
type ModelAgent struct {
	kind        core.AgentKind
	llm         model.Model
	registry    *tool.Registry
	instruction Instruction
	tools       []string
	toolTimeout time.Duration
	maxMemory   int
	logger      logging.Logger
}

var _ core.Agent = (*ModelAgent)(nil)

// NewModelAgent creates an agent of kind. registry may be nil, in which case
// no tools are called.
func NewModelAgent(kind core.AgentKind, llm model.Model, registry *tool.Registry, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction: DefaultInstruction(kind),
		Tools:       DefaultTools(kind),
		ToolTimeout: 15 * time.Second,
		MaxMemory:   5,
		Logger:      logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &ModelAgent{
		kind:        kind,
		llm:         llm,
		registry:    registry,
		instruction: opts.Instruction,
		tools:       append([]string(nil), opts.Tools...),
		toolTimeout: opts.ToolTimeout,
		maxMemory:   opts.MaxMemory,
		logger:      logging.OrNoOp(opts.Logger),
	}
}

// NewMarketingAgent creates the marketing agent.
func NewMarketingAgent(llm model.Model, registry *tool.Registry, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	return NewModelAgent(core.KindMarketing, llm, registry, optFns...)
}

// NewOperationAgent creates the operation agent.
func NewOperationAgent(llm model.Model, registry *tool.Registry, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	return NewModelAgent(core.KindOperation, llm, registry, optFns...)
}

// NewResearchAgent creates the research agent.
func NewResearchAgent(llm model.Model, registry *tool.Registry, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	return NewModelAgent(core.KindResearch, llm, registry, optFns...)
}

// Kind implements core.Agent.
func (a *ModelAgent) Kind() core.AgentKind { return a.kind }

// Tools returns the configured tool names.
func (a *ModelAgent) Tools() []string { return append([]string(nil), a.tools...) }

// Execute implements core.Agent.
func (a *ModelAgent) Execute(ctx context.Context, in core.ExecutionInput) (core.Result, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, fmt.Errorf("agent %s: %w", a.kind, ErrEmptyQuery)
	}

	instructions, err := a.instruction.Resolve(in)
	if err != nil {
		return nil, fmt.Errorf("agent %s: resolve instruction: %w", a.kind, err)
	}

	steps := append([]core.TraceStep(nil), in.Trace...)
	used, observations, advertised := a.runTools(ctx, query, &steps)

	prompt, err := util.RenderPrompt(promptTemplate, map[string]any{
		"Memory":       a.memoryLines(in.Memory),
		"Observations": observations,
		"Advertised":   advertised,
		"Query":        query,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.kind, err)
	}

	start := time.Now()
	resp, err := a.llm.Generate(ctx, model.UserText(instructions, prompt))
	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	logging.LLMCall(a.logger, a.llm.Info().Name, tokens, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.kind, err)
	}

	return core.Result{
		"agent":              a.kind.String(),
		"answer":             resp.Text,
		"tools":              used,
		"intermediate_steps": steps,
	}, nil
}

// runTools calls every configured tool whose arguments can be derived from
// the query alone. Tools needing richer arguments are only advertised.
// Failures are recorded in the trace and otherwise ignored.
func (a *ModelAgent) runTools(ctx context.Context, query string, steps *[]core.TraceStep) (used []string, observations []core.TraceStep, advertised []string) {
	used = []string{}
	if a.registry == nil {
		return used, nil, nil
	}

	for _, name := range a.tools {
		h, err := a.registry.Resolve(name)
		if err != nil {
			a.logger.Warn("agent.tool.unavailable", "agent", a.kind.String(), "tool", name, "error", err.Error())
			continue
		}

		if !acceptsQuery(h.Parameters()) {
			advertised = append(advertised, name)
			continue
		}

		args := map[string]any{"query": query}
		step := core.TraceStep{Action: name, Input: args}

		out, err := a.callTool(ctx, h, args)
		if err != nil {
			a.logger.Warn("agent.tool.failed", "agent", a.kind.String(), "tool", name, "error", err.Error())
			step.Error = err.Error()
			*steps = append(*steps, step)
			continue
		}

		step.Observation = out
		*steps = append(*steps, step)
		observations = append(observations, step)
		used = append(used, name)
	}

	return used, observations, advertised
}

func (a *ModelAgent) callTool(ctx context.Context, h *tool.Handle, args map[string]any) (any, error) {
	if a.toolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.toolTimeout)
		defer cancel()
	}
	return h.Call(ctx, args)
}

// acceptsQuery reports whether {"query": string} satisfies schema.
func acceptsQuery(schema map[string]any) bool {
	props, _ := schema["properties"].(map[string]any)
	q, ok := props["query"].(map[string]any)
	if !ok || (q["type"] != nil && q["type"] != "string") {
		return false
	}

	var required []string
	switch r := schema["required"].(type) {
	case []string:
		required = r
	case []any:
		for _, v := range r {
			s, _ := v.(string)
			required = append(required, s)
		}
	}
	for _, name := range required {
		if name != "query" {
			return false
		}
	}

	return true
}

type memoryLine struct {
	Query  string
	Answer string
}

// memoryLines extracts query/answer pairs from stored payloads of the form
// {"query": ..., "result": {...}}.
func (a *ModelAgent) memoryLines(memory []map[string]any) []memoryLine {
	lines := make([]memoryLine, 0, len(memory))
	for _, m := range memory {
		if a.maxMemory > 0 && len(lines) >= a.maxMemory {
			break
		}

		q, _ := m["query"].(string)
		line := memoryLine{Query: q}

		switch r := m["result"].(type) {
		case core.Result:
			line.Answer = answerOf(r)
		case map[string]any:
			line.Answer = answerOf(r)
		case nil:
		default:
			line.Answer = fmt.Sprint(r)
		}

		lines = append(lines, line)
	}
	return lines
}

func answerOf(r map[string]any) string {
	if s, ok := r["answer"].(string); ok {
		return s
	}
	return fmt.Sprint(r)
}
