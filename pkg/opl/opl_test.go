// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opl

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pulse/pkg/core/facts"
	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/gomlx/pulse/pkg/core/registry"
	"github.com/gomlx/pulse/pkg/pulse"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := Registry()
	require.Equal(t, Namespace, r.Namespace())
	require.Equal(t, []string{NameErf, NameIsNaN, NameIsInf, NameLrn, NameOneHot}, r.Names())
	require.Equal(t, []ops.Kind{KindErf, KindIsInf, KindIsNaN, KindLrn, KindOneHot}, r.Kinds())
	for _, kind := range r.Kinds() {
		name, found := r.PairedName(kind)
		require.Truef(t, found, "kind %s not paired", kind)
		_, found = r.Primitive(name)
		require.True(t, found)
	}
	require.NoError(t, r.Check())
}

// load wires the named operator on a fresh input of the given fact.
func load(t *testing.T, name string, fact facts.Static, args map[string]any) (*ops.TypedModel, []graph.Outlet, error) {
	t.Helper()
	model := ops.NewTypedModel()
	input := must.M1(model.AddSource("input", fact))
	outputs, err := Registry().Load(model, "node", []graph.Outlet{input}, &registry.Invocation{Op: name, Args: args})
	return model, outputs, err
}

func TestElementWise(t *testing.T) {
	fact := facts.MakeStatic(dtypes.Float64, 2, "S")
	model, outputs, err := load(t, NameIsNaN, fact, nil)
	require.NoError(t, err)
	require.Equal(t, dtypes.Bool, must.M1(model.OutletFact(outputs[0])).DType())

	model, outputs, err = load(t, NameErf, fact, nil)
	require.NoError(t, err)
	require.True(t, must.M1(model.OutletFact(outputs[0])).Equal(fact))

	// IsInf detects both infinities by default.
	model, outputs, err = load(t, NameIsInf, fact, nil)
	require.NoError(t, err)
	node := model.Node(outputs[0].Node)
	require.Equal(t, IsInf{DetectPositive: true, DetectNegative: true}, node.Op().(*ops.ElementWise).Mini)

	inv := must.M1(Registry().DumpNode(model, node))
	require.Equal(t, NameIsInf, inv.Op)
	require.Equal(t, map[string]any{"detect_positive": true, "detect_negative": true}, inv.Args)

	model, outputs, err = load(t, NameIsInf, fact, map[string]any{"detect_negative": false})
	require.NoError(t, err)
	require.Equal(t, IsInf{DetectPositive: true}, model.Node(outputs[0].Node).Op().(*ops.ElementWise).Mini)

	_, _, err = load(t, NameIsInf, fact, map[string]any{"detect_zero": true})
	require.ErrorContains(t, err, "unknown parameters")
	_, _, err = load(t, NameIsInf, fact, map[string]any{"detect_negative": 3.5})
	require.Error(t, err)
}

func TestLrn(t *testing.T) {
	fact := facts.MakeStatic(dtypes.Float32, 1, 8, "S")
	model, outputs, err := load(t, NameLrn, fact, map[string]any{"size": 3})
	require.NoError(t, err)
	node := model.Node(outputs[0].Node)
	require.Equal(t, &Lrn{Alpha: 0.0001, Beta: 0.75, Bias: 1, Size: 3}, node.Op())
	require.True(t, must.M1(model.OutletFact(outputs[0])).Equal(fact))

	inv := must.M1(Registry().DumpNode(model, node))
	require.Equal(t, NameLrn, inv.Op)
	require.Equal(t, 3, inv.Args["size"])
	require.Equal(t, 0.75, inv.Args["beta"])

	_, _, err = load(t, NameLrn, fact, nil)
	require.ErrorContains(t, err, `missing value for parameter "size"`)
	_, _, err = load(t, NameLrn, fact, map[string]any{"size": 0})
	require.ErrorContains(t, err, "size must be > 0")
	_, _, err = load(t, NameLrn, facts.MakeStatic(dtypes.Float32, "S"), map[string]any{"size": 3})
	require.ErrorContains(t, err, "no channel axis")
	_, _, err = load(t, NameLrn, facts.MakeStatic(dtypes.Int32, 1, 8), map[string]any{"size": 3})
	require.ErrorContains(t, err, "must be float")
}

func TestOneHot(t *testing.T) {
	fact := facts.MakeStatic(dtypes.Int64, "B", "S")
	model, outputs, err := load(t, NameOneHot, fact, map[string]any{"axis": 2, "dim": 5, "dtype": "float16"})
	require.NoError(t, err)
	node := model.Node(outputs[0].Node)
	require.Equal(t, &OneHot{Axis: 2, Dim: 5, Off: 0, On: 1, DType: dtypes.Float16}, node.Op())
	output := must.M1(model.OutletFact(outputs[0]))
	require.Equal(t, dtypes.Float16, output.DType())
	require.Equal(t, 5, output.Shape().Dim(2))
	require.Equal(t, "S", output.Shape().AxisName(1))

	inv := must.M1(Registry().DumpNode(model, node))
	require.Equal(t, "Float16", inv.Args["dtype"])

	_, _, err = load(t, NameOneHot, fact, map[string]any{"axis": 3, "dim": 5})
	require.ErrorContains(t, err, "out-of-range")
	_, _, err = load(t, NameOneHot, fact, map[string]any{"axis": 0, "dim": 0})
	require.ErrorContains(t, err, "dim must be > 0")
	_, _, err = load(t, NameOneHot, fact, map[string]any{"axis": 0, "dim": 2, "dtype": "float128"})
	require.ErrorContains(t, err, "unknown dtype")
	_, _, err = load(t, NameOneHot, facts.MakeStatic(dtypes.Float32, 3), map[string]any{"axis": 0, "dim": 2})
	require.ErrorContains(t, err, "must be integers")
}

func TestOneHotPulsedFacts(t *testing.T) {
	input := facts.NewPulsed(facts.MakeStatic(dtypes.Int32, 2, "S"), 1, 4, 3)
	for _, tc := range []struct{ axis, streamAxis int }{{0, 2}, {1, 2}, {2, 1}} {
		op := &OneHot{Axis: tc.axis, Dim: 6, On: 1, DType: dtypes.Float32}
		outputs, err := op.PulsedOutputFacts([]facts.Pulsed{input})
		require.NoError(t, err)
		require.Equalf(t, tc.streamAxis, outputs[0].Axis(), "OneHot axis %d", tc.axis)
		require.Equal(t, 4, outputs[0].Pulse())
		require.Equal(t, 3, outputs[0].Delay())
		require.Equal(t, 3, outputs[0].Rank())
	}

	outputs, err := (&OneHot{Axis: 0, Dim: 6, DType: dtypes.Float32}).PulsedOutputFacts(
		[]facts.Pulsed{facts.Unstreamed(facts.MakeStatic(dtypes.Int32, 2))})
	require.NoError(t, err)
	require.False(t, outputs[0].HasStream())
}

func TestPulsifiers(t *testing.T) {
	table := pulse.DefaultTable(RegisterPulsifiers)
	for _, kind := range Registry().Kinds() {
		_, found := table.Lookup(kind)
		require.Truef(t, found, "no pulsifier for %s", kind)
	}

	// Streaming along the time axis.
	typed := ops.NewTypedModel()
	features := must.M1(typed.AddSource("features", facts.MakeStatic(dtypes.Float32, 1, 8, "S")))
	indices := must.M1(typed.AddSource("indices", facts.MakeStatic(dtypes.Int64, 1, "S")))
	delayed := must.M1(typed.WireNode("delay", &pulse.Delay{Axis: 2, Delay: 2}, features))
	lrn := must.M1(typed.WireNode("lrn", &Lrn{Alpha: 1, Beta: 0.5, Bias: 1, Size: 3}, delayed...))
	isNaN := must.M1(typed.WireNode("is_nan", ops.NewElementWise(IsNaN{}), lrn...))
	oneHot := must.M1(typed.WireNode("one_hot", &OneHot{Axis: 1, Dim: 4, On: 1, DType: dtypes.Float32}, indices))
	require.NoError(t, typed.SetOutputOutlets(isNaN[0], oneHot[0]))

	pulsed, err := pulse.NewModel(typed, pulse.Config{Pulse: 2, Symbol: "S"}, table)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 0}, must.M1(pulse.Delays(pulsed)))
	fact := must.M1(pulsed.OutletFact(pulsed.OutputOutlets()[1]))
	require.Equal(t, 2, fact.Axis())
	require.Equal(t, []int{1, 4, 2}, fact.Shape().Dimensions)

	// Lrn can't be pulsified along the channels.
	typed = ops.NewTypedModel()
	features = must.M1(typed.AddSource("features", facts.MakeStatic(dtypes.Float32, 1, "S", 5)))
	lrn = must.M1(typed.WireNode("lrn", &Lrn{Alpha: 1, Beta: 0.5, Bias: 1, Size: 3}, features))
	require.NoError(t, typed.SetOutputOutlets(lrn...))
	_, err = pulse.NewModel(typed, pulse.Config{Pulse: 2, Symbol: "S"}, table)
	require.ErrorIs(t, err, pulse.ErrUnsupportedStreamingLayout)
}
