package nodes

import (
	"context"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"flowline.dev/flowline/engine/param"
	"flowline.dev/flowline/engine/registry"
	"flowline.dev/flowline/engine/workflow"
)

const schemaResource = "workflow:///schema.json"

// registerJSONSchema registers the schema validation node: a configured JSON
// Schema applied to the incoming document. The document passes through
// unchanged on success; violations and malformed schemas are node errors.
func registerJSONSchema(reg *registry.Registry) {
	reg.MustRegister(registry.Descriptor{
		Type:        "json-schema",
		Name:        "JSON Schema",
		Description: "Validates a JSON document against a configured schema.",
		Tags:        []string{"json"},
		ComputeCost: 1,
		Inputs: []workflow.Input{
			{Name: "document", Type: param.KindJSON, Required: true},
			{Name: "schema", Type: param.KindJSON, Required: true, Hidden: true},
		},
		Outputs: []workflow.Output{
			{Name: "document", Type: param.KindJSON},
		},
	}, func(workflow.Node) (registry.Executable, error) {
		return registry.ExecuteFunc(func(_ context.Context, nc *registry.Context) (map[string]param.Value, error) {
			doc, ok := nc.Inputs.Value("document")
			if !ok {
				return nil, fmt.Errorf("input %q is not bound", "document")
			}
			schemaValue, ok := nc.Inputs.Value("schema")
			if !ok {
				return nil, fmt.Errorf("input %q is not bound", "schema")
			}
			schema, err := compileSchema(schemaValue.Doc)
			if err != nil {
				return nil, fmt.Errorf("invalid schema: %s", err)
			}
			if err := schema.Validate(documentForm(doc)); err != nil {
				return nil, fmt.Errorf("schema validation failed: %s", err)
			}
			return map[string]param.Value{"document": doc}, nil
		}), nil
	})
}

// documentForm returns the decoded-JSON representation of a value. A json
// input accepts scalar kinds, which carry their payload in the scalar fields
// rather than Doc; without this mapping a scalar would validate as null.
func documentForm(v param.Value) any {
	switch v.Kind {
	case param.KindString:
		return v.Text
	case param.KindNumber:
		return v.Number
	case param.KindBoolean:
		return v.Bool
	default:
		return v.Doc
	}
}

func compileSchema(doc any) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaResource, doc); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaResource)
}
