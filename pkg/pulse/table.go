// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pulse

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/pulse/pkg/core/facts"
	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/gomlx/pulse/pkg/core/translator"
	"github.com/gomlx/pulse/pkg/support/sets"
	"github.com/gomlx/pulse/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrNoPulsifierForOperator is returned when a node's operator kind has no entry in the Table.
var ErrNoPulsifierForOperator = errors.New("no pulsifier for operator")

// PulsifyFn translates one node of a typed model into the pulsed model being built, returning the
// pulsed outlets corresponding to the node's outputs, in order.
type PulsifyFn func(ctx *Context, node *ops.TypedNode) ([]graph.Outlet, error)

type tableEntry struct {
	kind ops.Kind
	fn   PulsifyFn
}

// Table maps operator kinds to their PulsifyFn.
//
// It is append-only: it is populated during an explicit initialization phase and then frozen, after
// which it is read-only and can be shared by concurrent translations. When a kind is registered more
// than once, the first registration wins.
type Table struct {
	entries []tableEntry
	frozen  bool
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{}
}

// DefaultTable creates a Table with the core pulsifiers (sources, delays and placeholders), then
// lets each contributor register its operators, and freezes it.
func DefaultTable(contributors ...func(*Table)) *Table {
	t := NewTable()
	t.Register(ops.KindSource, pulsifySource)
	t.Register(KindDelay, pulsifyDelay)
	t.Register(ops.KindDummy, pulsifyDummy)
	for _, contribute := range contributors {
		contribute(t)
	}
	t.Freeze()
	return t
}

// Register appends an entry for kind. It panics if the table is frozen.
func (t *Table) Register(kind ops.Kind, fn PulsifyFn) {
	if t.frozen {
		exceptions.Panicf("pulse.Table: Register(%q) after the table was frozen", kind)
	}
	if fn == nil {
		exceptions.Panicf("pulse.Table: Register(%q) with nil PulsifyFn", kind)
	}
	if _, found := t.Lookup(kind); found {
		klog.Warningf("pulse.Table: kind %q registered again, the first registration takes precedence", kind)
	}
	t.entries = append(t.entries, tableEntry{kind: kind, fn: fn})
	klog.V(1).Infof("pulse.Table: registered pulsifier for %q", kind)
}

// Freeze makes the table read-only.
func (t *Table) Freeze() { t.frozen = true }

// Frozen returns whether the table is read-only.
func (t *Table) Frozen() bool { return t.frozen }

// Lookup returns the first entry registered for kind.
func (t *Table) Lookup(kind ops.Kind) (PulsifyFn, bool) {
	for _, entry := range t.entries {
		if entry.kind == kind {
			return entry.fn, true
		}
	}
	return nil, false
}

// Kinds returns the distinct registered kinds, in registration order.
func (t *Table) Kinds() []ops.Kind {
	kinds := make([]ops.Kind, 0, len(t.entries))
	seen := sets.Make[ops.Kind](len(t.entries))
	for _, entry := range t.entries {
		if seen.Add(entry.kind) {
			kinds = append(kinds, entry.kind)
		}
	}
	return kinds
}

// Context is passed to each PulsifyFn.
type Context struct {
	Source  *ops.TypedModel
	Target  *PulsedModel
	Mapping translator.Mapping
	Config  Config
}

// Tap returns the pulsed outlet corresponding to a source outlet.
func (ctx *Context) Tap(outlet graph.Outlet) (graph.Outlet, error) {
	mapped, found := ctx.Mapping[outlet]
	if !found {
		return mapped, errors.Errorf("source outlet %s was not pulsified yet", outlet)
	}
	return mapped, nil
}

// Inputs returns the pulsed outlets of the node's inputs.
func (ctx *Context) Inputs(node *ops.TypedNode) ([]graph.Outlet, error) {
	return translator.Inputs(node, ctx.Mapping)
}

// Fact returns the pulsed fact of a target outlet.
func (ctx *Context) Fact(outlet graph.Outlet) (facts.Pulsed, error) {
	return ctx.Target.OutletFact(outlet)
}

// Wire adds op to the pulsed model, see graph.Graph.WireNode.
func (ctx *Context) Wire(name string, op PulsedOp, inputs ...graph.Outlet) ([]graph.Outlet, error) {
	return ctx.Target.WireNode(name, op, inputs...)
}

// SyncInputs aligns the delays of the streamed outlets among inputs, inserting Delay nodes on the
// lagging ones so they all have the maximum delay. Unstreamed inputs are returned as is.
//
// Streamed inputs must share the streaming axis and pulse, otherwise it fails with
// ErrUnsupportedStreamingLayout.
func SyncInputs(ctx *Context, name string, inputs []graph.Outlet) ([]graph.Outlet, error) {
	inputFacts := make([]facts.Pulsed, len(inputs))
	var delays []int
	axis, pulse := -1, 0
	for ii, input := range inputs {
		fact, err := ctx.Fact(input)
		if err != nil {
			return nil, err
		}
		inputFacts[ii] = fact
		if !fact.HasStream() {
			continue
		}
		if axis == -1 {
			axis, pulse = fact.Axis(), fact.Pulse()
		} else if fact.Axis() != axis || fact.Pulse() != pulse {
			return nil, errors.Wrapf(ErrUnsupportedStreamingLayout,
				"node %q: input #%d %s streams differently from previous inputs (axis %d, pulse %d)",
				name, ii, fact, axis, pulse)
		}
		delays = append(delays, fact.Delay())
	}
	if len(delays) <= 1 {
		return slices.Clone(inputs), nil
	}
	maxDelay := xslices.Max(delays)
	synced := slices.Clone(inputs)
	for ii, fact := range inputFacts {
		if !fact.HasStream() || fact.Delay() == maxDelay {
			continue
		}
		delayed, err := ctx.Wire(ctx.Target.UniqueName(name+".delay"),
			&Delay{Axis: axis, Delay: maxDelay - fact.Delay()}, inputs[ii])
		if err != nil {
			return nil, err
		}
		synced[ii] = delayed[0]
	}
	return synced, nil
}

// PassThrough pulsifies an operator that works independently on each position of the streaming
// axis: it wires the same operator, lifted, on the synchronized inputs.
func PassThrough(ctx *Context, node *ops.TypedNode) ([]graph.Outlet, error) {
	inputs, err := ctx.Inputs(node)
	if err != nil {
		return nil, err
	}
	inputs, err = SyncInputs(ctx, node.Name(), inputs)
	if err != nil {
		return nil, err
	}
	return ctx.Wire(node.Name(), Lift(node.Op()), inputs...)
}

// ElementWisePulsifier pulsifies ops.ElementWise nodes: element-wise operators never add delay.
func ElementWisePulsifier(ctx *Context, node *ops.TypedNode) ([]graph.Outlet, error) {
	if _, ok := node.Op().(*ops.ElementWise); !ok {
		return nil, errors.Errorf("node %q: ElementWisePulsifier used on non element-wise op %s", node.Name(), node.Op().Name())
	}
	inputs, err := ctx.Inputs(node)
	if err != nil {
		return nil, err
	}
	return ctx.Wire(node.Name(), Lift(node.Op()), inputs...)
}

// pulsifySource streams the source on the axis named Config.Symbol, or on Config.Axis if no symbol
// is configured.
func pulsifySource(ctx *Context, node *ops.TypedNode) ([]graph.Outlet, error) {
	fact := node.OutputFacts()[0]
	axis := ctx.Config.Axis
	if ctx.Config.Symbol != "" {
		axis = fact.Shape().AxisOf(ctx.Config.Symbol)
		if axis < 0 {
			return nil, errors.Wrapf(ErrUnsupportedStreamingLayout, "source %q %s has no axis %q",
				node.Name(), fact, ctx.Config.Symbol)
		}
	}
	if axis >= fact.Rank() {
		return nil, errors.Wrapf(ErrUnsupportedStreamingLayout, "source %q %s has no axis %d",
			node.Name(), fact, axis)
	}
	outlet, err := ctx.Target.AddSource(node.Name(), facts.NewPulsed(fact, axis, ctx.Config.Pulse, 0))
	if err != nil {
		return nil, err
	}
	return []graph.Outlet{outlet}, nil
}

func pulsifyDelay(ctx *Context, node *ops.TypedNode) ([]graph.Outlet, error) {
	op := node.Op().(*Delay)
	inputs, err := ctx.Inputs(node)
	if err != nil {
		return nil, err
	}
	return ctx.Wire(node.Name(), &Delay{Axis: op.Axis, Delay: op.Delay, Overlap: op.Overlap}, inputs...)
}

// pulsifyDummy keeps placeholders: wired ones pass their inputs through, standalone ones keep their
// facts, without stream.
func pulsifyDummy(ctx *Context, node *ops.TypedNode) ([]graph.Outlet, error) {
	inputs, err := ctx.Inputs(node)
	if err != nil {
		return nil, err
	}
	if len(inputs) > 0 {
		return ctx.Wire(node.Name(), ctx.Target.Family().CreateDummy(), inputs...)
	}
	pulsedFacts := make([]facts.Pulsed, node.NumOutputs())
	for ii, fact := range node.OutputFacts() {
		pulsedFacts[ii] = facts.Unstreamed(fact)
	}
	id, err := ctx.Target.AddDummy(node.Name(), pulsedFacts)
	if err != nil {
		return nil, err
	}
	return ctx.Target.Node(id).Outlets(), nil
}
