package tool

import (
	"sort"
	"sync"

	"github.com/hupe1980/agentrouter/logging"
)

// CapabilityFunc is the implementation behind a registered tool. Arguments
// have already been validated against the descriptor's parameter schema.
type CapabilityFunc func(cc *CallContext, args map[string]any) (any, error)

// Descriptor declares a tool: its name, what it needs and how to invoke it.
type Descriptor struct {
	Name        string
	Description string
	// Requires lists dependency names in declaration order.
	Requires []string
	// Parameters is a minimal JSON schema for the arguments (optional).
	Parameters map[string]any
	Invoke     CapabilityFunc
}

// Registrable is implemented by tool plugins.
type Registrable interface {
	Register(reg *Registry) error
}

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

// Registry maps tool names to descriptors and owns the shared dependency map.
// Registration is serialized; resolution only takes a read lock.
type Registry struct {
	mu     sync.RWMutex
	deps   map[string]any
	tools  map[string]Descriptor
	logger logging.Logger
}

// NewRegistry creates a registry over a fixed dependency mapping. The map is
// copied; the registry never closes or releases its entries.
func NewRegistry(deps map[string]any, optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	copied := make(map[string]any, len(deps))
	for k, v := range deps {
		copied[k] = v
	}

	return &Registry{
		deps:   copied,
		tools:  make(map[string]Descriptor),
		logger: logging.OrNoOp(opts.Logger),
	}
}

// Register adds d, or replaces an existing tool with the same name. It fails
// with *MissingDependencyError naming the first absent dependency.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" || d.Invoke == nil {
		return NewToolError(d.Name, "descriptor needs a name and an invoke function", CodeValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, dep := range d.Requires {
		if _, ok := r.deps[dep]; !ok {
			return &MissingDependencyError{Tool: d.Name, Dependency: dep}
		}
	}

	if _, exists := r.tools[d.Name]; exists {
		r.logger.Warn("tool.register.overwrite", "tool", d.Name)
	}

	d.Requires = append([]string(nil), d.Requires...)
	r.tools[d.Name] = d

	r.logger.Debug("tool.register", "tool", d.Name, "requires", d.Requires)

	return nil
}

// RegisterFunc registers fn under name without a description or schema.
func (r *Registry) RegisterFunc(name string, fn CapabilityFunc, requires ...string) error {
	return r.Register(Descriptor{Name: name, Requires: requires, Invoke: fn})
}

// Resolve returns a callable handle with the tool's dependencies pre-bound.
func (r *Registry) Resolve(name string) (*Handle, error) {
	r.mu.RLock()
	d, ok := r.tools[name]
	var deps Deps
	if ok {
		deps = make(Deps, len(d.Requires))
		for _, dep := range d.Requires {
			deps[dep] = r.deps[dep]
		}
	}
	r.mu.RUnlock()

	if !ok {
		return nil, &UnknownToolError{Name: name}
	}

	return &Handle{desc: d, deps: deps, logger: r.logger}, nil
}

// Dependency returns the raw dependency registered under name.
func (r *Registry) Dependency(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.deps[name]
	return v, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Describe returns all descriptors sorted by name.
func (r *Registry) Describe() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// RegisterAll registers every plugin in order and stops at the first error.
func RegisterAll(reg *Registry, plugins ...Registrable) error {
	for _, p := range plugins {
		if err := p.Register(reg); err != nil {
			return err
		}
	}
	return nil
}
