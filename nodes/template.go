package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"flowline.dev/flowline/engine/param"
	"flowline.dev/flowline/engine/registry"
	"flowline.dev/flowline/engine/workflow"
)

// placeholder matches positional template slots of the form {0}, {1}, ...
var placeholder = regexp.MustCompile(`\{(\d+)\}`)

// registerTemplate registers the text templating node: a configured template
// string with positional placeholders filled from the connected values in
// edge order.
func registerTemplate(reg *registry.Registry) {
	reg.MustRegister(registry.Descriptor{
		Type:        "text-template",
		Name:        "Text Template",
		Description: "Renders a template with positional placeholders ({0}, {1}, ...).",
		Tags:        []string{"text"},
		Inlinable:   true,
		ComputeCost: 1,
		Inputs: []workflow.Input{
			{Name: "template", Type: param.KindString, Required: true, Hidden: true},
			{Name: "values", Type: param.KindAny, Repeated: true},
		},
		Outputs: []workflow.Output{
			{Name: "text", Type: param.KindString},
		},
	}, func(workflow.Node) (registry.Executable, error) {
		return registry.ExecuteFunc(func(_ context.Context, nc *registry.Context) (map[string]param.Value, error) {
			template, err := stringInput(nc, "template")
			if err != nil {
				return nil, err
			}
			values := nc.Inputs.Values("values")
			var renderErr error
			text := placeholder.ReplaceAllStringFunc(template, func(slot string) string {
				idx, _ := strconv.Atoi(slot[1 : len(slot)-1])
				if idx >= len(values) {
					if renderErr == nil {
						renderErr = fmt.Errorf("placeholder %s has no connected value", slot)
					}
					return slot
				}
				return renderValue(values[idx])
			})
			if renderErr != nil {
				return nil, renderErr
			}
			return map[string]param.Value{"text": param.String(text)}, nil
		}), nil
	})
}

// renderValue formats one parameter value for text interpolation. Binary
// values render as their reference id; JSON documents render compact.
func renderValue(v param.Value) string {
	switch v.Kind {
	case param.KindString:
		return v.Text
	case param.KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case param.KindBoolean:
		return strconv.FormatBool(v.Bool)
	case param.KindJSON, param.KindGeoJSON, param.KindAny:
		data, err := json.Marshal(v.Doc)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		if v.Ref != nil {
			return v.Ref.ID
		}
		return ""
	}
}
