package nodes

import (
	"context"
	"fmt"

	"flowline.dev/flowline/engine/param"
	"flowline.dev/flowline/engine/registry"
	"flowline.dev/flowline/engine/workflow"
)

// registerInputs registers the literal input nodes: each surfaces an
// author-configured value as its single output.
func registerInputs(reg *registry.Registry) {
	for _, spec := range []struct {
		typ  string
		name string
		kind param.Kind
	}{
		{"number-input", "Number Input", param.KindNumber},
		{"text-input", "Text Input", param.KindString},
		{"boolean-input", "Boolean Input", param.KindBoolean},
	} {
		kind := spec.kind
		reg.MustRegister(registry.Descriptor{
			Type:        spec.typ,
			Name:        spec.name,
			Description: fmt.Sprintf("Emits a configured %s literal.", kind),
			Tags:        []string{"input"},
			Inlinable:   true,
			Inputs: []workflow.Input{
				{Name: "value", Type: kind, Required: true, Hidden: true},
			},
			Outputs: []workflow.Output{
				{Name: "value", Type: kind},
			},
		}, literalFactory(kind))
	}
}

// literalFactory builds an executable that forwards the configured input
// value. The value reaches Execute through the regular input binding path, so
// edge-fed overrides work like everywhere else.
func literalFactory(kind param.Kind) registry.Factory {
	return func(workflow.Node) (registry.Executable, error) {
		return registry.ExecuteFunc(func(_ context.Context, nc *registry.Context) (map[string]param.Value, error) {
			v, ok := nc.Inputs.Value("value")
			if !ok {
				return nil, fmt.Errorf("input %q is not bound", "value")
			}
			if v.Kind != kind {
				return nil, fmt.Errorf("input %q is not a %s (got %s)", "value", kind, v.Kind)
			}
			return map[string]param.Value{"value": v}, nil
		}), nil
	}
}
