// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package registry

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pulse/pkg/core/facts"
	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type square struct{}

func (square) Kind() ops.Kind { return "test.Square" }
func (square) Name() string { return "Square" }
func (square) OutputType(dtype dtypes.DType) dtypes.DType { return dtype }

type clip struct{ low, high float64 }

func (clip) Kind() ops.Kind { return "test.Clip" }
func (clip) Name() string { return "Clip" }
func (clip) OutputType(dtype dtypes.DType) dtypes.DType { return dtype }

func newTestRegistry() *Registry {
	r := New("test")
	r.RegisterUnitElementWise("test_square", square{})
	r.RegisterElementWise("test_clip", clip{}.Kind(),
		func(mini ops.ElementWiseMiniOp) (map[string]any, error) {
			c := mini.(clip)
			return map[string]any{"low": c.low, "high": c.high}, nil
		},
		[]Parameter{Scalar("low").WithDefault(0), Scalar("high")},
		func(args Arguments) (ops.ElementWiseMiniOp, error) {
			return clip{low: args.Float("low"), high: args.Float("high")}, nil
		})
	return r
}

func TestRegistryLookups(t *testing.T) {
	r := newTestRegistry()
	require.Equal(t, "test", r.Namespace())
	require.Equal(t, []string{"test_clip", "test_square"}, r.Names())
	require.Equal(t, []ops.Kind{"test.Clip", "test.Square"}, r.Kinds())

	_, found := r.Dumper("test.Square")
	require.True(t, found)
	_, found = r.Dumper("test.Unknown")
	require.False(t, found)
	p, found := r.Primitive("test_clip")
	require.True(t, found)
	require.Len(t, p.Params, 2)
	name, found := r.PairedName("test.Clip")
	require.True(t, found)
	require.Equal(t, "test_clip", name)

	require.Panics(t, func() { r.RegisterUnitElementWise("test_square", square{}) })
	require.Panics(t, func() {
		r.RegisterPrimitive("twice", []Parameter{Int("a"), Int("a")},
			func(*Builder, Arguments) ([]graph.Outlet, error) { return nil, nil })
	})
}

func TestRegisterElementWiseTwice(t *testing.T) {
	r := newTestRegistry()
	// The name is taken: the registration panics before replacing the dumper of clip.
	require.Panics(t, func() { r.RegisterUnitElementWise("test_square", clip{}) })
	model := ops.NewTypedModel()
	input := must.M1(model.AddSource("input", facts.MakeStatic(dtypes.Float32, 4)))
	clipped := must.M1(model.WireNode("clipped", ops.NewElementWise(clip{low: -1, high: 1}), input))
	inv, err := r.DumpNode(model, model.Node(clipped[0].Node))
	require.NoError(t, err)
	require.Equal(t, "test_clip", inv.Op)
	name, found := r.PairedName("test.Clip")
	require.True(t, found)
	require.Equal(t, "test_clip", name)
	require.NoError(t, r.Check())
}

func TestElementWiseRoundTrip(t *testing.T) {
	r := newTestRegistry()
	model := ops.NewTypedModel()
	input := must.M1(model.AddSource("input", facts.MakeStatic(dtypes.Float32, "S", 4)))
	clipped := must.M1(model.WireNode("clipped", ops.NewElementWise(clip{low: -1, high: 1}), input))
	squared := must.M1(model.WireNode("squared", ops.NewElementWise(square{}), clipped...))

	inv, err := r.DumpNode(model, model.Node(clipped[0].Node))
	require.NoError(t, err)
	require.Equal(t, "test_clip", inv.Op)
	require.Equal(t, map[string]any{"low": -1.0, "high": 1.0}, inv.Args)

	inv2, err := r.DumpNode(model, model.Node(squared[0].Node))
	require.NoError(t, err)
	require.Equal(t, "test_square", inv2.Op)
	require.Empty(t, inv2.Args)

	// Dumper miss is silent.
	inv3, err := r.DumpNode(model, model.Node(input.Node))
	require.NoError(t, err)
	require.Nil(t, inv3)

	// Load the dumped invocation into a new model.
	reloaded := ops.NewTypedModel()
	reInput := must.M1(reloaded.AddSource("input", facts.MakeStatic(dtypes.Float32, "S", 4)))
	outlets, err := r.Load(reloaded, "clipped", []graph.Outlet{reInput}, inv)
	require.NoError(t, err)
	require.Len(t, outlets, 1)
	node := reloaded.Node(outlets[0].Node)
	require.Equal(t, "clipped", node.Name())
	require.Equal(t, clip{low: -1, high: 1}, node.Op().(*ops.ElementWise).Mini)

	// Default value for "low".
	outlets, err = r.Load(reloaded, "clipped2", outlets, &Invocation{Op: "test_clip", Args: map[string]any{"high": 3}})
	require.NoError(t, err)
	require.Equal(t, clip{low: 0, high: 3}, reloaded.Node(outlets[0].Node).Op().(*ops.ElementWise).Mini)
}

func TestLoadErrors(t *testing.T) {
	r := newTestRegistry()
	model := ops.NewTypedModel()
	input := must.M1(model.AddSource("input", facts.MakeStatic(dtypes.Float32, 4)))

	_, err := r.Load(model, "x", []graph.Outlet{input}, &Invocation{Op: "test_cube"})
	require.ErrorIs(t, err, ErrUnknownOperatorName)

	_, err = r.Load(model, "x", []graph.Outlet{input}, &Invocation{Op: "test_clip"})
	require.ErrorContains(t, err, `missing value for parameter "high"`)

	_, err = r.Load(model, "x", []graph.Outlet{input},
		&Invocation{Op: "test_clip", Args: map[string]any{"high": 1, "width": 2}})
	require.ErrorContains(t, err, "unknown parameters")

	_, err = r.Load(model, "x", []graph.Outlet{input},
		&Invocation{Op: "test_clip", Args: map[string]any{"high": "one"}})
	require.ErrorContains(t, err, `parameter "high"`)

	// Panics in load functions are reported as errors.
	r.RegisterPrimitive("test_panic", nil, func(*Builder, Arguments) ([]graph.Outlet, error) {
		exceptions.Panicf("boom")
		return nil, nil
	})
	_, err = r.Load(model, "x", []graph.Outlet{input}, &Invocation{Op: "test_panic"})
	require.ErrorContains(t, err, "boom")

	r.RegisterPrimitive("test_fail", nil, func(*Builder, Arguments) ([]graph.Outlet, error) {
		return nil, errors.New("refused")
	})
	_, err = r.Load(model, "x", []graph.Outlet{input}, &Invocation{Op: "test_fail"})
	require.ErrorContains(t, err, "refused")
}

func TestResolveArguments(t *testing.T) {
	schema := []Parameter{
		Int("axis").WithDefault(0),
		Scalar("alpha"),
		Logical("flag").WithDefault(false),
		String("mode").WithDefault("same"),
		Ints("perm").WithDefault([]int{}),
	}
	args, err := ResolveArguments(schema, map[string]any{
		"alpha": 1,
		"perm":  []any{1, 0, int64(2)},
		"flag":  true,
	})
	require.NoError(t, err)
	require.Equal(t, 0, args.Int("axis"))
	require.Equal(t, 1.0, args.Float("alpha"))
	require.True(t, args.Bool("flag"))
	require.Equal(t, "same", args.String("mode"))
	require.Equal(t, []int{1, 0, 2}, args.Ints("perm"))
	require.Panics(t, func() { args.Int("alpha") })
	require.Panics(t, func() { args.Int("missing") })

	_, err = ResolveArguments(schema, map[string]any{"alpha": 1, "axis": 1.5})
	require.Error(t, err)
	require.Panics(t, func() { Int("x").WithDefault("zero") })
}

func TestBuilder(t *testing.T) {
	model := ops.NewTypedModel()
	input := must.M1(model.AddSource("input", facts.MakeStatic(dtypes.Float32, 2)))
	b := NewBuilder(model, "node", []graph.Outlet{input})
	fact, err := b.InputFact(0)
	require.NoError(t, err)
	require.Equal(t, dtypes.Float32, fact.DType())
	_, err = b.InputFact(1)
	require.Error(t, err)

	first := must.M1(b.Wire(ops.NewElementWise(square{}), b.Inputs()...))
	second := must.M1(b.Wire(ops.NewElementWise(square{}), first...))
	require.Equal(t, "node", model.Node(first[0].Node).Name())
	require.Equal(t, "node.Square", model.Node(second[0].Node).Name())
}

func TestCheckPairing(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Check())

	dump := func(*ops.TypedModel, *ops.TypedNode) (*Invocation, error) { return &Invocation{Op: "test_pad"}, nil }
	r.RegisterDumper("test.Pad", dump)
	require.ErrorContains(t, r.Check(), `"test.Pad" is not paired`)
	r.Pair("test.Pad", "test_pad")
	require.ErrorContains(t, r.Check(), `unregistered primitive "test_pad"`)
	r.RegisterPrimitive("test_pad", []Parameter{Ints("pads")},
		func(b *Builder, _ Arguments) ([]graph.Outlet, error) { return b.Inputs(), nil })
	require.NoError(t, r.Check())

	// A later dumper replaces the previous one.
	r.RegisterDumper("test.Pad", func(*ops.TypedModel, *ops.TypedNode) (*Invocation, error) {
		return &Invocation{Op: "test_pad", Args: map[string]any{"pads": []int{1}}}, nil
	})
	replaced, found := r.Dumper("test.Pad")
	require.True(t, found)
	inv := must.M1(replaced(nil, nil))
	require.Equal(t, []int{1}, inv.Args["pads"])
}
