package nodes

import (
	"context"
	"errors"
	"fmt"

	"flowline.dev/flowline/engine/param"
	"flowline.dev/flowline/engine/registry"
	"flowline.dev/flowline/engine/workflow"
)

// registerConditionals registers the branching primitives. The fork emits
// exactly one of its two outputs; the absent output is the skip signal that
// disables the un-taken branch downstream. The join forwards whichever branch
// reached it.
func registerConditionals(reg *registry.Registry) {
	reg.MustRegister(registry.Descriptor{
		Type:        workflow.TypeConditionalFork,
		Name:        "Conditional Fork",
		Description: "Routes a value down the true or false branch.",
		Tags:        []string{"control"},
		Inlinable:   true,
		Inputs: []workflow.Input{
			{Name: "condition", Type: param.KindBoolean, Required: true},
			{Name: "value", Type: param.KindAny, Required: true},
		},
		Outputs: []workflow.Output{
			{Name: "true", Type: param.KindAny},
			{Name: "false", Type: param.KindAny},
		},
	}, func(workflow.Node) (registry.Executable, error) {
		return registry.ExecuteFunc(func(_ context.Context, nc *registry.Context) (map[string]param.Value, error) {
			condition, err := boolInput(nc, "condition")
			if err != nil {
				return nil, err
			}
			value, ok := nc.Inputs.Value("value")
			if !ok {
				return nil, fmt.Errorf("input %q is not bound", "value")
			}
			if condition {
				return map[string]param.Value{"true": value}, nil
			}
			return map[string]param.Value{"false": value}, nil
		}), nil
	})

	reg.MustRegister(registry.Descriptor{
		Type:        workflow.TypeConditionalJoin,
		Name:        "Conditional Join",
		Description: "Forwards whichever branch value arrived.",
		Tags:        []string{"control"},
		Inlinable:   true,
		Inputs: []workflow.Input{
			{Name: "true", Type: param.KindAny},
			{Name: "false", Type: param.KindAny},
		},
		Outputs: []workflow.Output{
			{Name: "value", Type: param.KindAny},
		},
	}, func(workflow.Node) (registry.Executable, error) {
		return registry.ExecuteFunc(func(_ context.Context, nc *registry.Context) (map[string]param.Value, error) {
			if v, ok := nc.Inputs.Value("true"); ok {
				return map[string]param.Value{"value": v}, nil
			}
			if v, ok := nc.Inputs.Value("false"); ok {
				return map[string]param.Value{"value": v}, nil
			}
			// The scheduler skips an unbound join; reaching here is a wiring bug.
			return nil, errors.New("no branch value arrived")
		}), nil
	})
}
