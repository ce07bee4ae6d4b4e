package validate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"flowline.dev/flowline/engine/param"
	"flowline.dev/flowline/engine/registry"
	"flowline.dev/flowline/engine/validate"
	"flowline.dev/flowline/engine/workflow"
)

// testRegistry registers the two minimal types the validator tests wire up: a
// source emitting a number and a sink consuming one.
func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	noop := func(workflow.Node) (registry.Executable, error) {
		return registry.ExecuteFunc(func(context.Context, *registry.Context) (map[string]param.Value, error) {
			return nil, nil
		}), nil
	}
	reg.MustRegister(registry.Descriptor{Type: "source"}, noop)
	reg.MustRegister(registry.Descriptor{Type: "sink"}, noop)
	return reg
}

func source(id string) workflow.Node {
	return workflow.Node{
		ID:      id,
		Type:    "source",
		Outputs: []workflow.Output{{Name: "value", Type: param.KindNumber}},
	}
}

func sink(id string, required bool) workflow.Node {
	return workflow.Node{
		ID:   id,
		Type: "sink",
		Inputs: []workflow.Input{
			{Name: "value", Type: param.KindNumber, Required: required},
		},
	}
}

func kinds(errs []validate.Error) []validate.Kind {
	out := make([]validate.Kind, len(errs))
	for i, e := range errs {
		out[i] = e.Kind
	}
	return out
}

func TestValidWorkflow(t *testing.T) {
	wf := workflow.Workflow{
		ID:    "wf",
		Nodes: []workflow.Node{source("s"), sink("d", true)},
		Edges: []workflow.Edge{{From: "s", Output: "value", To: "d", Input: "value"}},
	}
	require.Empty(t, validate.Validate(testRegistry(t), wf))
}

func TestDuplicateNodeID(t *testing.T) {
	wf := workflow.Workflow{
		ID:    "wf",
		Nodes: []workflow.Node{source("s"), source("s")},
	}
	errs := validate.Validate(testRegistry(t), wf)
	require.Contains(t, kinds(errs), validate.KindInvalidConnection)
}

func TestUnregisteredType(t *testing.T) {
	wf := workflow.Workflow{
		ID:    "wf",
		Nodes: []workflow.Node{{ID: "x", Type: "mystery"}},
	}
	errs := validate.Validate(testRegistry(t), wf)
	require.Len(t, errs, 1)
	require.Equal(t, validate.KindInvalidConnection, errs[0].Kind)
	require.Equal(t, "x", errs[0].NodeID)
}

func TestDanglingEdgeEndpoints(t *testing.T) {
	wf := workflow.Workflow{
		ID:    "wf",
		Nodes: []workflow.Node{source("s")},
		Edges: []workflow.Edge{{From: "s", Output: "value", To: "ghost", Input: "value"}},
	}
	errs := validate.Validate(testRegistry(t), wf)
	require.Contains(t, kinds(errs), validate.KindInvalidConnection)
}

func TestUnknownParameterNames(t *testing.T) {
	wf := workflow.Workflow{
		ID:    "wf",
		Nodes: []workflow.Node{source("s"), sink("d", false)},
		Edges: []workflow.Edge{{From: "s", Output: "nope", To: "d", Input: "missing"}},
	}
	errs := validate.Validate(testRegistry(t), wf)
	require.Len(t, errs, 2)
	for _, e := range errs {
		require.Equal(t, validate.KindInvalidConnection, e.Kind)
	}
}

func TestTypeMismatch(t *testing.T) {
	text := workflow.Node{
		ID:      "t",
		Type:    "source",
		Outputs: []workflow.Output{{Name: "value", Type: param.KindString}},
	}
	wf := workflow.Workflow{
		ID:    "wf",
		Nodes: []workflow.Node{text, sink("d", true)},
		Edges: []workflow.Edge{{From: "t", Output: "value", To: "d", Input: "value"}},
	}
	errs := validate.Validate(testRegistry(t), wf)
	require.Len(t, errs, 1)
	require.Equal(t, validate.KindTypeMismatch, errs[0].Kind)
	require.Equal(t, "d", errs[0].NodeID)
}

func TestDuplicateEdge(t *testing.T) {
	e := workflow.Edge{From: "s", Output: "value", To: "d", Input: "value"}
	wf := workflow.Workflow{
		ID:    "wf",
		Nodes: []workflow.Node{source("s"), sink("d", true)},
		Edges: []workflow.Edge{e, e},
	}
	errs := validate.Validate(testRegistry(t), wf)
	require.Contains(t, kinds(errs), validate.KindDuplicateConnection)
}

func TestMultipleEdgesIntoNonRepeatedInput(t *testing.T) {
	wf := workflow.Workflow{
		ID:    "wf",
		Nodes: []workflow.Node{source("s1"), source("s2"), sink("d", true)},
		Edges: []workflow.Edge{
			{From: "s1", Output: "value", To: "d", Input: "value"},
			{From: "s2", Output: "value", To: "d", Input: "value"},
		},
	}
	errs := validate.Validate(testRegistry(t), wf)
	require.Len(t, errs, 1)
	require.Equal(t, validate.KindDuplicateConnection, errs[0].Kind)
}

func TestRepeatedInputAcceptsMultipleEdges(t *testing.T) {
	collector := workflow.Node{
		ID:   "d",
		Type: "sink",
		Inputs: []workflow.Input{
			{Name: "value", Type: param.KindNumber, Required: true, Repeated: true},
		},
	}
	wf := workflow.Workflow{
		ID:    "wf",
		Nodes: []workflow.Node{source("s1"), source("s2"), collector},
		Edges: []workflow.Edge{
			{From: "s1", Output: "value", To: "d", Input: "value"},
			{From: "s2", Output: "value", To: "d", Input: "value"},
		},
	}
	require.Empty(t, validate.Validate(testRegistry(t), wf))
}

func TestUnboundRequiredInput(t *testing.T) {
	wf := workflow.Workflow{
		ID:    "wf",
		Nodes: []workflow.Node{sink("d", true)},
	}
	errs := validate.Validate(testRegistry(t), wf)
	require.Len(t, errs, 1)
	require.Equal(t, validate.KindInvalidConnection, errs[0].Kind)
}

func TestLiteralSatisfiesRequiredInput(t *testing.T) {
	v := param.Number(1)
	node := sink("d", true)
	node.Inputs[0].Value = &v
	wf := workflow.Workflow{ID: "wf", Nodes: []workflow.Node{node}}
	require.Empty(t, validate.Validate(testRegistry(t), wf))
}

func TestCycleDetected(t *testing.T) {
	relay := func(id string) workflow.Node {
		return workflow.Node{
			ID:      id,
			Type:    "sink",
			Inputs:  []workflow.Input{{Name: "value", Type: param.KindNumber}},
			Outputs: []workflow.Output{{Name: "value", Type: param.KindNumber}},
		}
	}
	wf := workflow.Workflow{
		ID:    "wf",
		Nodes: []workflow.Node{relay("a"), relay("b"), relay("c")},
		Edges: []workflow.Edge{
			{From: "a", Output: "value", To: "b", Input: "value"},
			{From: "b", Output: "value", To: "c", Input: "value"},
			{From: "c", Output: "value", To: "a", Input: "value"},
		},
	}
	errs := validate.Validate(testRegistry(t), wf)
	require.Contains(t, kinds(errs), validate.KindCycle)
}
