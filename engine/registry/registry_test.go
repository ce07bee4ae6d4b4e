package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"flowline.dev/flowline/engine/param"
	"flowline.dev/flowline/engine/registry"
	"flowline.dev/flowline/engine/workflow"
)

func noopFactory(workflow.Node) (registry.Executable, error) {
	return registry.ExecuteFunc(func(context.Context, *registry.Context) (map[string]param.Value, error) {
		return nil, nil
	}), nil
}

func TestRegisterLookup(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(registry.Descriptor{Type: "echo", ComputeCost: 2}, noopFactory))

	desc, ok := reg.Lookup("echo")
	require.True(t, ok)
	require.Equal(t, int64(2), desc.ComputeCost)

	_, ok = reg.Lookup("missing")
	require.False(t, ok)
}

func TestRegisterValidation(t *testing.T) {
	reg := registry.New()
	require.Error(t, reg.Register(registry.Descriptor{}, noopFactory), "type is required")
	require.Error(t, reg.Register(registry.Descriptor{Type: "x"}, nil), "factory is required")

	require.NoError(t, reg.Register(registry.Descriptor{Type: "dup"}, noopFactory))
	require.Error(t, reg.Register(registry.Descriptor{Type: "dup"}, noopFactory))
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(registry.Descriptor{Type: "once"}, noopFactory)
	require.Panics(t, func() {
		reg.MustRegister(registry.Descriptor{Type: "once"}, noopFactory)
	})
}

func TestNewExecutableUnknownType(t *testing.T) {
	reg := registry.New()
	_, err := reg.NewExecutable(workflow.Node{ID: "n", Type: "ghost"})
	require.ErrorIs(t, err, registry.ErrUnknownType)
}

func TestDescriptorsSorted(t *testing.T) {
	reg := registry.New()
	for _, typ := range []string{"zeta", "alpha", "mid"} {
		reg.MustRegister(registry.Descriptor{Type: typ}, noopFactory)
	}
	descs := reg.Descriptors()
	require.Len(t, descs, 3)
	require.Equal(t, "alpha", descs[0].Type)
	require.Equal(t, "mid", descs[1].Type)
	require.Equal(t, "zeta", descs[2].Type)
}

func TestInputsAccessors(t *testing.T) {
	in := registry.Inputs{"values": {param.Number(1), param.Number(2)}}

	v, ok := in.Value("values")
	require.True(t, ok)
	require.Equal(t, float64(1), v.Number)

	require.Len(t, in.Values("values"), 2)

	_, ok = in.Value("missing")
	require.False(t, ok)
	require.Empty(t, in.Values("missing"))
}
