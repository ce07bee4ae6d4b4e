package nodes

import (
	"context"
	"errors"
	"fmt"

	"flowline.dev/flowline/engine/param"
	"flowline.dev/flowline/engine/registry"
	"flowline.dev/flowline/engine/workflow"
)

// ErrDivisionByZero is the node error reported by the division node.
var ErrDivisionByZero = errors.New("Division by zero is not allowed")

// registerMath registers the arithmetic nodes.
func registerMath(reg *registry.Registry) {
	for _, spec := range []struct {
		typ   string
		name  string
		apply func(a, b float64) (float64, error)
	}{
		{"addition", "Addition", func(a, b float64) (float64, error) { return a + b, nil }},
		{"subtraction", "Subtraction", func(a, b float64) (float64, error) { return a - b, nil }},
		{"multiplication", "Multiplication", func(a, b float64) (float64, error) { return a * b, nil }},
		{"division", "Division", func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, ErrDivisionByZero
			}
			return a / b, nil
		}},
	} {
		apply := spec.apply
		reg.MustRegister(registry.Descriptor{
			Type:        spec.typ,
			Name:        spec.name,
			Description: fmt.Sprintf("%s of two numbers.", spec.name),
			Tags:        []string{"math"},
			Inlinable:   true,
			ComputeCost: 1,
			Inputs: []workflow.Input{
				{Name: "a", Type: param.KindNumber, Required: true},
				{Name: "b", Type: param.KindNumber, Required: true},
			},
			Outputs: []workflow.Output{
				{Name: "result", Type: param.KindNumber},
			},
		}, binaryMathFactory(apply))
	}

	reg.MustRegister(registry.Descriptor{
		Type:        "sum",
		Name:        "Sum",
		Description: "Sum of every connected number.",
		Tags:        []string{"math"},
		Inlinable:   true,
		ComputeCost: 1,
		Inputs: []workflow.Input{
			{Name: "values", Type: param.KindNumber, Required: true, Repeated: true},
		},
		Outputs: []workflow.Output{
			{Name: "result", Type: param.KindNumber},
		},
	}, func(workflow.Node) (registry.Executable, error) {
		return registry.ExecuteFunc(func(_ context.Context, nc *registry.Context) (map[string]param.Value, error) {
			values := nc.Inputs.Values("values")
			if len(values) == 0 {
				return nil, errors.New(`input "values" is not bound`)
			}
			var total float64
			for i, v := range values {
				if v.Kind != param.KindNumber {
					return nil, fmt.Errorf("value %d is not a number (got %s)", i, v.Kind)
				}
				total += v.Number
			}
			return map[string]param.Value{"result": param.Number(total)}, nil
		}), nil
	})
}

func binaryMathFactory(apply func(a, b float64) (float64, error)) registry.Factory {
	return func(workflow.Node) (registry.Executable, error) {
		return registry.ExecuteFunc(func(_ context.Context, nc *registry.Context) (map[string]param.Value, error) {
			a, err := numberInput(nc, "a")
			if err != nil {
				return nil, err
			}
			b, err := numberInput(nc, "b")
			if err != nil {
				return nil, err
			}
			result, err := apply(a, b)
			if err != nil {
				return nil, err
			}
			return map[string]param.Value{"result": param.Number(result)}, nil
		}), nil
	}
}
