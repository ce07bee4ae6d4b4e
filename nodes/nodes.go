// Package nodes implements the built-in node types the engine ships with:
// literal inputs, arithmetic, conditional branching primitives, text
// templating, JSON schema validation and trigger sources. RegisterAll is the
// authoritative startup list; hosts extend the registry with their own types
// after calling it.
package nodes

import (
	"fmt"

	"flowline.dev/flowline/engine/param"
	"flowline.dev/flowline/engine/registry"
)

// RegisterAll registers every built-in node type. It panics on duplicate
// registration, which only happens on a programming error in the startup path.
func RegisterAll(reg *registry.Registry) {
	registerInputs(reg)
	registerMath(reg)
	registerConditionals(reg)
	registerTemplate(reg)
	registerJSONSchema(reg)
	registerTriggers(reg)
}

// numberInput extracts the single bound value of a number input, guarding
// against any-typed producers that delivered a non-number at runtime.
func numberInput(nc *registry.Context, name string) (float64, error) {
	v, ok := nc.Inputs.Value(name)
	if !ok {
		return 0, fmt.Errorf("input %q is not bound", name)
	}
	if v.Kind != param.KindNumber {
		return 0, fmt.Errorf("input %q is not a number (got %s)", name, v.Kind)
	}
	return v.Number, nil
}

// stringInput extracts the single bound value of a string input.
func stringInput(nc *registry.Context, name string) (string, error) {
	v, ok := nc.Inputs.Value(name)
	if !ok {
		return "", fmt.Errorf("input %q is not bound", name)
	}
	if v.Kind != param.KindString {
		return "", fmt.Errorf("input %q is not a string (got %s)", name, v.Kind)
	}
	return v.Text, nil
}

// boolInput extracts the single bound value of a boolean input.
func boolInput(nc *registry.Context, name string) (bool, error) {
	v, ok := nc.Inputs.Value(name)
	if !ok {
		return false, fmt.Errorf("input %q is not bound", name)
	}
	if v.Kind != param.KindBoolean {
		return false, fmt.Errorf("input %q is not a boolean (got %s)", name, v.Kind)
	}
	return v.Bool, nil
}
