// Package registry maps node type identifiers to their static descriptors and
// to factories that build executable instances from graph nodes. The registry
// is built once at startup from an authoritative list (nodes.RegisterAll plus
// any host extensions) and passed explicitly through the run call — there is
// no ambient singleton and no dynamic loading.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"flowline.dev/flowline/engine/param"
	"flowline.dev/flowline/engine/trigger"
	"flowline.dev/flowline/engine/workflow"
)

// ErrUnknownType indicates a node type has no registration.
var ErrUnknownType = errors.New("unknown node type")

type (
	// Descriptor is the static description of a node type: its parameter
	// schema, cost and catalog metadata.
	Descriptor struct {
		// Type is the node type identifier, unique within the registry.
		Type string `json:"type"`
		// Name is the human-readable catalog name.
		Name string `json:"name"`
		// Description explains what the node does.
		Description string `json:"description,omitempty"`
		// Tags group node types in the catalog.
		Tags []string `json:"tags,omitempty"`
		// Icon names the catalog icon.
		Icon string `json:"icon,omitempty"`
		// Inlinable marks nodes cheap enough to run inline in interactive hosts.
		Inlinable bool `json:"inlinable,omitempty"`
		// AsTool marks nodes exposable as LLM tools by the host.
		AsTool bool `json:"asTool,omitempty"`
		// ComputeCost is the usage charged per completed execution of the node.
		ComputeCost int64 `json:"computeCost"`
		// Inputs is the canonical input schema for instances of this type.
		Inputs []workflow.Input `json:"inputs,omitempty"`
		// Outputs is the canonical output schema.
		Outputs []workflow.Output `json:"outputs,omitempty"`
	}

	// Factory binds a graph node to a fresh executable instance.
	Factory func(node workflow.Node) (Executable, error)

	// Executable is one node implementation instance. Execute receives the
	// engine-form inputs and returns wire-ready engine outputs by name; a
	// returned error is the node error recorded in the execution trace, never
	// an engine failure.
	Executable interface {
		Execute(ctx context.Context, nc *Context) (map[string]param.Value, error)
	}

	// Context is handed to Executable.Execute. It carries everything a node
	// may consult; all fields except identifiers and Inputs are optional and
	// default to inert implementations.
	Context struct {
		// NodeID is the executing node's id within the workflow.
		NodeID string
		// WorkflowID is the id of the workflow being executed.
		WorkflowID string
		// ExecutionID is the id of the current execution.
		ExecutionID string
		// OrganizationID is the organization the run is billed to.
		OrganizationID string
		// Inputs holds the engine-form input values by input name. Repeated
		// inputs carry every bound value in edge declaration order.
		Inputs Inputs
		// Env exposes host-provided environment values.
		Env map[string]string
		// Secrets resolves named secrets.
		Secrets SecretSource
		// Integrations resolves integration connections.
		Integrations IntegrationSource
		// Trigger carries the payloads that started the run, if any.
		Trigger trigger.Payloads
		// OnProgress reports a human-readable progress message. Never nil.
		OnProgress func(message string)
	}

	// Inputs maps input names to their bound values in edge declaration order.
	// Non-repeated inputs always hold exactly one value.
	Inputs map[string][]param.Value

	// SecretSource resolves named secrets for node implementations.
	SecretSource interface {
		// Secret returns the named secret value or an error if unavailable.
		Secret(ctx context.Context, name string) (string, error)
	}

	// IntegrationSource resolves integration connections for node implementations.
	IntegrationSource interface {
		// Integration returns connection info for the given integration id.
		Integration(ctx context.Context, id string) (Integration, error)
	}

	// Integration is a resolved integration connection.
	Integration struct {
		ID       string
		Type     string
		Settings map[string]string
	}

	// Registry holds the node type registrations. Registration happens during
	// startup; afterwards the registry is read-only and safe for concurrent use.
	Registry struct {
		mu      sync.RWMutex
		entries map[string]entry
	}

	entry struct {
		desc    Descriptor
		factory Factory
	}
)

// Value returns the single bound value for name. Repeated inputs return their
// first value; use Values for the full list.
func (in Inputs) Value(name string) (param.Value, bool) {
	vs := in[name]
	if len(vs) == 0 {
		return param.Value{}, false
	}
	return vs[0], true
}

// Values returns every bound value for name in edge declaration order.
func (in Inputs) Values(name string) []param.Value {
	return in[name]
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a node type. Registering a duplicate type or a nil factory is
// an error; descriptors must declare a type identifier.
func (r *Registry) Register(desc Descriptor, factory Factory) error {
	if desc.Type == "" {
		return errors.New("descriptor type is required")
	}
	if factory == nil {
		return errors.New("factory is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[desc.Type]; ok {
		return fmt.Errorf("node type %q already registered", desc.Type)
	}
	r.entries[desc.Type] = entry{desc: desc, factory: factory}
	return nil
}

// MustRegister is Register that panics on error. Intended for the startup
// registration list where a failure is a programming bug.
func (r *Registry) MustRegister(desc Descriptor, factory Factory) {
	if err := r.Register(desc, factory); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor for a node type.
func (r *Registry) Lookup(nodeType string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[nodeType]
	return e.desc, ok
}

// NewExecutable binds a graph node to a fresh implementation instance.
// Returns ErrUnknownType if the node's type has no registration.
func (r *Registry) NewExecutable(node workflow.Node) (Executable, error) {
	r.mu.RLock()
	e, ok := r.entries[node.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, node.Type)
	}
	return e.factory(node)
}

// Descriptors returns every registered descriptor sorted by type identifier,
// for validation and the external type catalog.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// ExecuteFunc adapts a function to the Executable interface.
type ExecuteFunc func(ctx context.Context, nc *Context) (map[string]param.Value, error)

// Execute implements Executable.
func (f ExecuteFunc) Execute(ctx context.Context, nc *Context) (map[string]param.Value, error) {
	return f(ctx, nc)
}
