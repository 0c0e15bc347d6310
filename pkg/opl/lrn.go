// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opl

import (
	"fmt"

	"github.com/gomlx/pulse/pkg/core/facts"
	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/gomlx/pulse/pkg/core/registry"
	"github.com/gomlx/pulse/pkg/pulse"
	"github.com/pkg/errors"
)

const KindLrn ops.Kind = "onnx.Lrn"

// lrnChannelAxis is the axis Lrn normalizes across.
const lrnChannelAxis = 1

// Lrn is the local response normalization: each element is divided by
// (Bias + Alpha/Size * sum of squares over Size neighboring channels)^Beta.
//
// Inputs are laid out as [batch, channels, ...].
type Lrn struct {
	Alpha, Beta, Bias float64
	Size              int
}

var _ ops.Op = (*Lrn)(nil)

func (*Lrn) Kind() ops.Kind { return KindLrn }
func (*Lrn) Name() string { return "Lrn" }
func (*Lrn) NumInputs() int { return 1 }
func (op *Lrn) String() string {
	return fmt.Sprintf("Lrn(alpha=%g, beta=%g, bias=%g, size=%d)", op.Alpha, op.Beta, op.Bias, op.Size)
}

// OutputFacts implements ops.Op.
func (op *Lrn) OutputFacts(inputs []facts.Static) ([]facts.Static, error) {
	if err := ops.CheckInputs(op, inputs, 1); err != nil {
		return nil, err
	}
	if op.Size <= 0 {
		return nil, errors.Errorf("Lrn: size must be > 0, got %d", op.Size)
	}
	if inputs[0].Rank() <= lrnChannelAxis {
		return nil, errors.Errorf("Lrn: input %s has no channel axis", inputs[0])
	}
	if !inputs[0].DType().IsFloat() {
		return nil, errors.Errorf("Lrn: input %s must be float", inputs[0])
	}
	return inputs, nil
}

func lrnParameters() []registry.Parameter {
	return []registry.Parameter{
		registry.Scalar("alpha").WithDefault(0.0001),
		registry.Scalar("beta").WithDefault(0.75),
		registry.Scalar("bias").WithDefault(1.0),
		registry.Int("size").WithDoc("number of channels to sum over"),
	}
}

func dumpLrn(_ *ops.TypedModel, node *ops.TypedNode) (*registry.Invocation, error) {
	op := node.Op().(*Lrn)
	return &registry.Invocation{
		Op: NameLrn,
		Args: map[string]any{
			"alpha": op.Alpha,
			"beta":  op.Beta,
			"bias":  op.Bias,
			"size":  op.Size,
		},
	}, nil
}

func loadLrn(b *registry.Builder, args registry.Arguments) ([]graph.Outlet, error) {
	op := &Lrn{
		Alpha: args.Float("alpha"),
		Beta:  args.Float("beta"),
		Bias:  args.Float("bias"),
		Size:  args.Int("size"),
	}
	return b.Wire(op, b.Inputs()...)
}

// pulsifyLrn keeps Lrn as is unless the stream runs along the channels.
func pulsifyLrn(ctx *pulse.Context, node *ops.TypedNode) ([]graph.Outlet, error) {
	inputs, err := ctx.Inputs(node)
	if err != nil {
		return nil, err
	}
	fact, err := ctx.Fact(inputs[0])
	if err != nil {
		return nil, err
	}
	if fact.Axis() == lrnChannelAxis {
		return nil, errors.Wrapf(pulse.ErrUnsupportedStreamingLayout,
			"node %q: Lrn normalizes across the streaming axis %d", node.Name(), lrnChannelAxis)
	}
	return ctx.Wire(node.Name(), pulse.Lift(node.Op()), inputs...)
}
