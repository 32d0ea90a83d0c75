package agent

import "github.com/hupe1980/agentrouter/core"

// Provider supplies dynamic instruction text per execution.
type Provider interface {
	Instruction(in core.ExecutionInput) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(in core.ExecutionInput) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(in core.ExecutionInput) (string, error) { return f(in) }

// Instruction represents either a static instruction string or a dynamic provider.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(in core.ExecutionInput) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// IsZero reports whether neither text nor provider is set.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(in core.ExecutionInput) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(in)
	}
	return i.text, nil
}

var defaultInstructions = map[core.AgentKind]string{
	core.KindMarketing: `You are the marketing agent. You design promotion plans, campaigns and
competitive analyses. Be concrete about channels, timing and budget.`,
	core.KindOperation: `You are the operation agent. You answer operational questions about
inventory, sales and logistics from data, and you state numbers precisely.`,
	core.KindResearch: `You are the research agent. You produce market and investment research
grounded in the provided sources, and you cite them.`,
}

// DefaultInstruction returns the built-in system instruction for kind.
func DefaultInstruction(kind core.AgentKind) Instruction {
	return NewInstructionFromText(defaultInstructions[kind])
}
