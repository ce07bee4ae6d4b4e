package nodes_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flowline.dev/flowline/engine/param"
	"flowline.dev/flowline/engine/registry"
	"flowline.dev/flowline/engine/trigger"
	"flowline.dev/flowline/engine/workflow"
	"flowline.dev/flowline/nodes"
)

func builtins(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	nodes.RegisterAll(reg)
	return reg
}

// execute builds a fresh executable for the type and runs it with the given
// inputs and trigger payloads.
func execute(t *testing.T, typ string, inputs registry.Inputs, payloads trigger.Payloads) (map[string]param.Value, error) {
	t.Helper()
	reg := builtins(t)
	exec, err := reg.NewExecutable(workflow.Node{ID: "n", Type: typ})
	require.NoError(t, err)
	return exec.Execute(context.Background(), &registry.Context{
		NodeID:     "n",
		Inputs:     inputs,
		Trigger:    payloads,
		OnProgress: func(string) {},
	})
}

func TestRegisterAllCatalog(t *testing.T) {
	reg := builtins(t)
	for _, typ := range []string{
		"number-input", "text-input", "boolean-input",
		"addition", "subtraction", "multiplication", "division", "sum",
		workflow.TypeConditionalFork, workflow.TypeConditionalJoin,
		"text-template", "json-schema",
		"http-request", "email-message", "queue-message", "schedule",
	} {
		_, ok := reg.Lookup(typ)
		require.True(t, ok, typ)
	}
}

func TestArithmetic(t *testing.T) {
	cases := []struct {
		typ  string
		a, b float64
		want float64
	}{
		{"addition", 2, 3, 5},
		{"subtraction", 10, 4, 6},
		{"multiplication", 6, 7, 42},
		{"division", 9, 2, 4.5},
	}
	for _, tc := range cases {
		t.Run(tc.typ, func(t *testing.T) {
			out, err := execute(t, tc.typ, registry.Inputs{
				"a": {param.Number(tc.a)},
				"b": {param.Number(tc.b)},
			}, trigger.Payloads{})
			require.NoError(t, err)
			require.Equal(t, tc.want, out["result"].Number)
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	_, err := execute(t, "division", registry.Inputs{
		"a": {param.Number(1)},
		"b": {param.Number(0)},
	}, trigger.Payloads{})
	require.Error(t, err)
	require.Equal(t, "Division by zero is not allowed", err.Error())
}

func TestArithmeticRejectsNonNumbers(t *testing.T) {
	_, err := execute(t, "addition", registry.Inputs{
		"a": {param.String("one")},
		"b": {param.Number(2)},
	}, trigger.Payloads{})
	require.Error(t, err)
}

func TestSum(t *testing.T) {
	out, err := execute(t, "sum", registry.Inputs{
		"values": {param.Number(1), param.Number(2), param.Number(3.5)},
	}, trigger.Payloads{})
	require.NoError(t, err)
	require.Equal(t, 6.5, out["result"].Number)

	_, err = execute(t, "sum", registry.Inputs{}, trigger.Payloads{})
	require.Error(t, err, "empty repeated input is a node error")
}

func TestLiteralInputs(t *testing.T) {
	out, err := execute(t, "number-input", registry.Inputs{"value": {param.Number(7)}}, trigger.Payloads{})
	require.NoError(t, err)
	require.Equal(t, float64(7), out["value"].Number)

	out, err = execute(t, "text-input", registry.Inputs{"value": {param.String("hi")}}, trigger.Payloads{})
	require.NoError(t, err)
	require.Equal(t, "hi", out["value"].Text)

	out, err = execute(t, "boolean-input", registry.Inputs{"value": {param.Bool(true)}}, trigger.Payloads{})
	require.NoError(t, err)
	require.True(t, out["value"].Bool)

	_, err = execute(t, "number-input", registry.Inputs{"value": {param.String("not a number")}}, trigger.Payloads{})
	require.Error(t, err)
}

func TestConditionalFork(t *testing.T) {
	out, err := execute(t, workflow.TypeConditionalFork, registry.Inputs{
		"condition": {param.Bool(true)},
		"value":     {param.Number(5)},
	}, trigger.Payloads{})
	require.NoError(t, err)
	require.Len(t, out, 1, "exactly one branch output")
	require.Equal(t, float64(5), out["true"].Number)

	out, err = execute(t, workflow.TypeConditionalFork, registry.Inputs{
		"condition": {param.Bool(false)},
		"value":     {param.Number(5)},
	}, trigger.Payloads{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, float64(5), out["false"].Number)
}

func TestConditionalJoin(t *testing.T) {
	out, err := execute(t, workflow.TypeConditionalJoin, registry.Inputs{
		"false": {param.String("fallback")},
	}, trigger.Payloads{})
	require.NoError(t, err)
	require.Equal(t, "fallback", out["value"].Text)

	_, err = execute(t, workflow.TypeConditionalJoin, registry.Inputs{}, trigger.Payloads{})
	require.Error(t, err)
}

func TestTextTemplate(t *testing.T) {
	out, err := execute(t, "text-template", registry.Inputs{
		"template": {param.String("{0} scored {1} ({2})")},
		"values":   {param.String("alice"), param.Number(9.5), param.Bool(true)},
	}, trigger.Payloads{})
	require.NoError(t, err)
	require.Equal(t, "alice scored 9.5 (true)", out["text"].Text)
}

func TestTextTemplateMissingValue(t *testing.T) {
	_, err := execute(t, "text-template", registry.Inputs{
		"template": {param.String("{0} and {3}")},
		"values":   {param.String("x")},
	}, trigger.Payloads{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "{3}")
}

func TestJSONSchemaValidation(t *testing.T) {
	schema := param.JSON(map[string]any{
		"type":     "object",
		"required": []any{"name"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	})

	valid := param.JSON(map[string]any{"name": "flow"})
	out, err := execute(t, "json-schema", registry.Inputs{
		"document": {valid},
		"schema":   {schema},
	}, trigger.Payloads{})
	require.NoError(t, err)
	require.Equal(t, valid.Doc, out["document"].Doc, "document passes through unchanged")

	invalid := param.JSON(map[string]any{"name": 42})
	_, err = execute(t, "json-schema", registry.Inputs{
		"document": {invalid},
		"schema":   {schema},
	}, trigger.Payloads{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "schema validation failed")
}

func TestJSONSchemaScalarDocuments(t *testing.T) {
	numberSchema := param.JSON(map[string]any{"type": "number"})

	out, err := execute(t, "json-schema", registry.Inputs{
		"document": {param.Number(5)},
		"schema":   {numberSchema},
	}, trigger.Payloads{})
	require.NoError(t, err, "scalars validate as their JSON form")
	require.Equal(t, float64(5), out["document"].Number)

	_, err = execute(t, "json-schema", registry.Inputs{
		"document": {param.String("five")},
		"schema":   {numberSchema},
	}, trigger.Payloads{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "schema validation failed")

	out, err = execute(t, "json-schema", registry.Inputs{
		"document": {param.Bool(false)},
		"schema":   {param.JSON(map[string]any{"type": "boolean"})},
	}, trigger.Payloads{})
	require.NoError(t, err)
	require.False(t, out["document"].Bool)
}

func TestJSONSchemaRejectsMalformedSchema(t *testing.T) {
	_, err := execute(t, "json-schema", registry.Inputs{
		"document": {param.JSON(map[string]any{})},
		"schema":   {param.JSON(map[string]any{"type": 12345})},
	}, trigger.Payloads{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid schema")
}

func TestHTTPRequestTrigger(t *testing.T) {
	payloads := trigger.Payloads{HTTPRequest: &trigger.HTTPRequest{
		Method:  "POST",
		Path:    "/hooks/in",
		Headers: map[string]string{"Content-Type": "application/json"},
		Query:   map[string]string{"v": "1"},
		Body:    []byte(`{"ok":true}`),
	}}
	out, err := execute(t, "http-request", registry.Inputs{}, payloads)
	require.NoError(t, err)
	require.Equal(t, "POST", out["method"].Text)
	require.Equal(t, "/hooks/in", out["path"].Text)
	require.Equal(t, `{"ok":true}`, out["body"].Text)
	headers, ok := out["headers"].Doc.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "application/json", headers["Content-Type"])

	_, err = execute(t, "http-request", registry.Inputs{}, trigger.Payloads{})
	require.Error(t, err, "no payload is a node error")
}

func TestEmailMessageTrigger(t *testing.T) {
	payloads := trigger.Payloads{EmailMessage: &trigger.EmailMessage{
		From:    "a@example.com",
		To:      "b@example.com",
		Subject: "hello",
		Body:    "world",
	}}
	out, err := execute(t, "email-message", registry.Inputs{}, payloads)
	require.NoError(t, err)
	require.Equal(t, "a@example.com", out["from"].Text)
	require.Equal(t, "hello", out["subject"].Text)
}

func TestQueueMessageTrigger(t *testing.T) {
	payloads := trigger.Payloads{QueueMessage: &trigger.QueueMessage{
		Queue: "jobs",
		Body:  []byte("payload"),
	}}
	out, err := execute(t, "queue-message", registry.Inputs{}, payloads)
	require.NoError(t, err)
	require.Equal(t, "jobs", out["queue"].Text)
	require.Equal(t, "payload", out["body"].Text)
}

func TestScheduleTrigger(t *testing.T) {
	at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	out, err := execute(t, "schedule", registry.Inputs{}, trigger.Payloads{ScheduledAt: &at})
	require.NoError(t, err)
	require.Equal(t, "2026-08-24T12:00:00Z", out["time"].Text)

	_, err = execute(t, "schedule", registry.Inputs{}, trigger.Payloads{})
	require.Error(t, err)
}
