// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pulse

import (
	"fmt"

	"github.com/gomlx/pulse/pkg/core/facts"
	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/gomlx/pulse/pkg/core/shapes"
	"github.com/pkg/errors"
)

// ErrUnsupportedStreamingLayout is returned when an operator can't express its semantics with the
// streaming axis where it is.
var ErrUnsupportedStreamingLayout = errors.New("unsupported streaming layout")

// PulsedOp is an operator of a pulsed model: it is also a typed operator, so pulsed models can be
// translated back to typed ones.
type PulsedOp interface {
	ops.Op

	// PulsedOutputFacts computes the output pulsed facts from the input ones. It returns an error
	// wrapping ErrUnsupportedStreamingLayout if the operator can't handle the streaming axis
	// placement.
	PulsedOutputFacts(inputs []facts.Pulsed) ([]facts.Pulsed, error)
}

// PulsedModel is a model with pulsed facts.
type PulsedModel = graph.Graph[facts.Pulsed, PulsedOp]

// PulsedNode is a node of a PulsedModel.
type PulsedNode = graph.Node[facts.Pulsed, PulsedOp]

// NewPulsedModel creates an empty PulsedModel.
func NewPulsedModel() *PulsedModel {
	return graph.New[facts.Pulsed, PulsedOp](PulsedFamily{})
}

// typedOp is implemented by pulsed operators wrapping a typed one.
type typedOp interface {
	Typed() ops.Op
}

// Typed returns the typed operator corresponding to op: the wrapped operator for lifted operators and
// placeholders, op itself otherwise.
func Typed(op PulsedOp) ops.Op {
	if t, ok := op.(typedOp); ok {
		return t.Typed()
	}
	return op
}

const (
	KindSource ops.Kind = "pulse.Source"
	KindDelay  ops.Kind = "pulse.Delay"
)

// Source is the source operator of pulsed models.
type Source struct {
	Fact facts.Pulsed
}

var _ PulsedOp = (*Source)(nil)

func (*Source) Kind() ops.Kind { return KindSource }
func (*Source) Name() string { return "PulsedSource" }
func (*Source) IsSource() bool { return true }
func (*Source) NumInputs() int { return 0 }
func (op *Source) String() string { return "PulsedSource" + op.Fact.String() }

// Typed returns the typed source with the runtime (pulse sized) shape.
func (op *Source) Typed() ops.Op { return &ops.Source{Fact: op.Fact.IntoStatic()} }

// OutputFacts implements ops.Op.
func (op *Source) OutputFacts(inputs []facts.Static) ([]facts.Static, error) {
	if err := ops.CheckInputs(op, inputs, 0); err != nil {
		return nil, err
	}
	return []facts.Static{op.Fact.IntoStatic()}, nil
}

// PulsedOutputFacts implements PulsedOp.
func (op *Source) PulsedOutputFacts(inputs []facts.Pulsed) ([]facts.Pulsed, error) {
	if err := ops.CheckInputs(op, inputs, 0); err != nil {
		return nil, err
	}
	return []facts.Pulsed{op.Fact}, nil
}

// Delay buffers its input on the streaming axis: the output lags Delay positions behind the input,
// and each output pulse carries Overlap extra positions from the previous pulses.
type Delay struct {
	Axis    int
	Delay   int
	Overlap int
}

var _ PulsedOp = (*Delay)(nil)

func (*Delay) Kind() ops.Kind { return KindDelay }
func (*Delay) Name() string { return "Delay" }
func (*Delay) NumInputs() int { return 1 }
func (op *Delay) String() string {
	return fmt.Sprintf("Delay(axis=%d, delay=%d, overlap=%d)", op.Axis, op.Delay, op.Overlap)
}

func (op *Delay) check() error {
	if op.Delay < 0 || op.Overlap < 0 {
		return errors.Errorf("Delay: delay (%d) and overlap (%d) must be >= 0", op.Delay, op.Overlap)
	}
	return nil
}

// OutputFacts implements ops.Op: the (runtime) extent of the axis grows by Overlap.
func (op *Delay) OutputFacts(inputs []facts.Static) ([]facts.Static, error) {
	if err := ops.CheckInputs(op, inputs, 1); err != nil {
		return nil, err
	}
	if err := op.check(); err != nil {
		return nil, err
	}
	shape := inputs[0].Shape()
	if op.Axis < 0 || op.Axis >= shape.Rank() {
		return nil, errors.Errorf("Delay: axis %d out-of-range for %s", op.Axis, inputs[0])
	}
	if op.Overlap == 0 {
		return []facts.Static{inputs[0]}, nil
	}
	dim := shape.Dim(op.Axis)
	if dim == shapes.DimDynamic {
		return nil, errors.Errorf("Delay: overlap on symbolic axis %d of %s", op.Axis, inputs[0])
	}
	return []facts.Static{facts.NewStatic(shape.WithDim(op.Axis, dim+op.Overlap))}, nil
}

// PulsedOutputFacts implements PulsedOp: the delay is accumulated and the pulse grows by Overlap.
func (op *Delay) PulsedOutputFacts(inputs []facts.Pulsed) ([]facts.Pulsed, error) {
	if err := ops.CheckInputs(op, inputs, 1); err != nil {
		return nil, err
	}
	if err := op.check(); err != nil {
		return nil, err
	}
	input := inputs[0]
	if !input.HasStream() || input.Axis() != op.Axis {
		return nil, errors.Wrapf(ErrUnsupportedStreamingLayout, "Delay on axis %d of %s", op.Axis, input)
	}
	output := input.WithDelay(input.Delay() + op.Delay)
	if op.Overlap > 0 {
		output = output.WithPulse(input.Pulse() + op.Overlap)
	}
	return []facts.Pulsed{output}, nil
}

// Lifted is a typed operator used as is in a pulsed model: its output facts are computed on the
// runtime shapes and inherit the stream information of the first streamed input. It suits operators
// that work independently on each position of the streaming axis, like element-wise ones.
type Lifted struct {
	Op ops.Op
}

var _ PulsedOp = (*Lifted)(nil)

// Lift wraps a typed operator for use in pulsed models.
func Lift(op ops.Op) *Lifted { return &Lifted{Op: op} }

func (l *Lifted) Kind() ops.Kind { return l.Op.Kind() }
func (l *Lifted) Name() string { return l.Op.Name() }
func (l *Lifted) NumInputs() int { return ops.Arity(l.Op) }
func (l *Lifted) Typed() ops.Op { return l.Op }
func (l *Lifted) String() string { return fmt.Sprintf("Lifted(%s)", l.Op.Name()) }

// OutputFacts implements ops.Op.
func (l *Lifted) OutputFacts(inputs []facts.Static) ([]facts.Static, error) {
	return l.Op.OutputFacts(inputs)
}

// PulsedOutputFacts implements PulsedOp. All streamed inputs must stream on the same axis with the
// same pulse and delay, see SyncInputs.
func (l *Lifted) PulsedOutputFacts(inputs []facts.Pulsed) ([]facts.Pulsed, error) {
	var stream *facts.Pulsed
	statics := make([]facts.Static, len(inputs))
	for ii, input := range inputs {
		statics[ii] = input.IntoStatic()
		if !input.HasStream() {
			continue
		}
		if stream == nil {
			stream = &inputs[ii]
			continue
		}
		if input.Axis() != stream.Axis() || input.Pulse() != stream.Pulse() || input.Delay() != stream.Delay() {
			return nil, errors.Wrapf(ErrUnsupportedStreamingLayout, "%s: input #%d %s doesn't match stream %s",
				l.Name(), ii, input, stream)
		}
	}
	outputs, err := l.Op.OutputFacts(statics)
	if err != nil {
		return nil, err
	}
	pulsed := make([]facts.Pulsed, len(outputs))
	for ii, output := range outputs {
		if stream == nil {
			pulsed[ii] = facts.Unstreamed(output)
			continue
		}
		shape := output.Shape()
		if stream.Axis() >= shape.Rank() || shape.Dim(stream.Axis()) != stream.Pulse() {
			return nil, errors.Wrapf(ErrUnsupportedStreamingLayout, "%s: output #%d %s lost streaming axis %d",
				l.Name(), ii, output, stream.Axis())
		}
		pulsed[ii] = stream.WithShape(shape)
	}
	return pulsed, nil
}

// placeholder is the pulsed counterpart of ops.Dummy.
type placeholder struct {
	ops.Dummy
}

var _ PulsedOp = (*placeholder)(nil)

func (*placeholder) Typed() ops.Op { return &ops.Dummy{} }

// PulsedOutputFacts implements PulsedOp.
func (*placeholder) PulsedOutputFacts(inputs []facts.Pulsed) ([]facts.Pulsed, error) {
	return inputs, nil
}

// PulsedFamily implements graph.Family for pulsed models.
type PulsedFamily struct{}

var _ graph.Family[facts.Pulsed, PulsedOp] = PulsedFamily{}

func (PulsedFamily) IsSource(op PulsedOp) bool { return ops.IsSource(op) }
func (PulsedFamily) IsDummy(op PulsedOp) bool { return ops.IsDummy(op) }
func (PulsedFamily) CreateSource(fact facts.Pulsed) PulsedOp { return &Source{Fact: fact} }
func (PulsedFamily) CreateDummy() PulsedOp { return &placeholder{} }
func (PulsedFamily) Arity(op PulsedOp) int { return ops.Arity(op) }
func (PulsedFamily) OutputFacts(op PulsedOp, inputs []facts.Pulsed) ([]facts.Pulsed, error) {
	return op.PulsedOutputFacts(inputs)
}
