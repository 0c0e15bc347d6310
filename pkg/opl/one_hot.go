// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opl

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pulse/pkg/core/facts"
	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/gomlx/pulse/pkg/core/registry"
	"github.com/gomlx/pulse/pkg/core/shapes"
	"github.com/gomlx/pulse/pkg/pulse"
	"github.com/pkg/errors"
)

const KindOneHot ops.Kind = "onnx.OneHot"

// OneHot expands integer indices into one-hot vectors along a new axis of dimension Dim, inserted at
// position Axis. Positions equal to the index hold On, the others Off.
type OneHot struct {
	Axis, Dim int
	Off, On   float64
	DType     dtypes.DType
}

var _ pulse.PulsedOp = (*OneHot)(nil)

func (*OneHot) Kind() ops.Kind { return KindOneHot }
func (*OneHot) Name() string { return "OneHot" }
func (*OneHot) NumInputs() int { return 1 }
func (op *OneHot) String() string {
	return fmt.Sprintf("OneHot(axis=%d, dim=%d, off=%g, on=%g, %s)", op.Axis, op.Dim, op.Off, op.On, op.DType)
}

// OutputFacts implements ops.Op.
func (op *OneHot) OutputFacts(inputs []facts.Static) ([]facts.Static, error) {
	if err := ops.CheckInputs(op, inputs, 1); err != nil {
		return nil, err
	}
	input := inputs[0]
	if !input.DType().IsInt() {
		return nil, errors.Errorf("OneHot: indices %s must be integers", input)
	}
	if op.Axis < 0 || op.Axis > input.Rank() {
		return nil, errors.Errorf("OneHot: axis %d out-of-range for indices %s", op.Axis, input)
	}
	if op.Dim <= 0 {
		return nil, errors.Errorf("OneHot: dim must be > 0, got %d", op.Dim)
	}
	if op.DType == dtypes.InvalidDType {
		return nil, errors.New("OneHot: output dtype not set")
	}
	shape := input.Shape().InsertAxis(op.Axis, op.Dim).WithDType(op.DType)
	return []facts.Static{facts.NewStatic(shape)}, nil
}

// PulsedOutputFacts implements pulse.PulsedOp: the streaming axis moves by one if the new axis is
// inserted at or before it.
func (op *OneHot) PulsedOutputFacts(inputs []facts.Pulsed) ([]facts.Pulsed, error) {
	if err := ops.CheckInputs(op, inputs, 1); err != nil {
		return nil, err
	}
	input := inputs[0]
	outputs, err := op.OutputFacts([]facts.Static{input.IntoStatic()})
	if err != nil {
		return nil, err
	}
	if !input.HasStream() {
		return []facts.Pulsed{facts.Unstreamed(outputs[0])}, nil
	}
	axis := input.Axis()
	if op.Axis <= axis {
		axis++
	}
	return []facts.Pulsed{input.WithShape(outputs[0].Shape()).WithAxis(axis)}, nil
}

func oneHotParameters() []registry.Parameter {
	return []registry.Parameter{
		registry.Int("axis"),
		registry.Int("dim"),
		registry.Scalar("value_off").WithDefault(0.0),
		registry.Scalar("value_on").WithDefault(1.0),
		registry.String("dtype").WithDefault(dtypes.Float32.String()),
	}
}

func dumpOneHot(_ *ops.TypedModel, node *ops.TypedNode) (*registry.Invocation, error) {
	op := node.Op().(*OneHot)
	return &registry.Invocation{
		Op: NameOneHot,
		Args: map[string]any{
			"axis":      op.Axis,
			"dim":       op.Dim,
			"value_off": op.Off,
			"value_on":  op.On,
			"dtype":     op.DType.String(),
		},
	}, nil
}

func loadOneHot(b *registry.Builder, args registry.Arguments) ([]graph.Outlet, error) {
	dtype, found := shapes.ParseDType(args.String("dtype"))
	if !found {
		return nil, errors.Errorf("OneHot: unknown dtype %q", args.String("dtype"))
	}
	op := &OneHot{
		Axis:  args.Int("axis"),
		Dim:   args.Int("dim"),
		Off:   args.Float("value_off"),
		On:    args.Float("value_on"),
		DType: dtype,
	}
	return b.Wire(op, b.Inputs()...)
}

func pulsifyOneHot(ctx *pulse.Context, node *ops.TypedNode) ([]graph.Outlet, error) {
	inputs, err := ctx.Inputs(node)
	if err != nil {
		return nil, err
	}
	op := *node.Op().(*OneHot)
	return ctx.Wire(node.Name(), &op, inputs...)
}
