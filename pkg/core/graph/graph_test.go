// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// sizeFact is a minimal fact: the size of a value.
type sizeFact int

func (f sizeFact) String() string { return fmt.Sprintf("size=%d", int(f)) }

// sumOp outputs a single value whose size is the sum of its inputs' sizes.
type sumOp struct {
	name   string
	arity  int
	source bool
	dummy  bool
}

func (op sumOp) Name() string { return op.name }

type testFamily struct{}

func (testFamily) IsSource(op sumOp) bool { return op.source }
func (testFamily) IsDummy(op sumOp) bool { return op.dummy }
func (testFamily) CreateSource(sizeFact) sumOp {
	return sumOp{name: "Source", source: true}
}
func (testFamily) CreateDummy() sumOp { return sumOp{name: "Dummy", arity: -1, dummy: true} }
func (testFamily) Arity(op sumOp) int { return op.arity }
func (testFamily) OutputFacts(op sumOp, inputs []sizeFact) ([]sizeFact, error) {
	if op.arity >= 0 && len(inputs) != op.arity {
		return nil, errors.Errorf("%s expects %d inputs, got %d", op.name, op.arity, len(inputs))
	}
	var total sizeFact
	for _, input := range inputs {
		total += input
	}
	return []sizeFact{total}, nil
}

func newTestGraph() *Graph[sizeFact, sumOp] {
	return New[sizeFact, sumOp](testFamily{})
}

func TestWireNode(t *testing.T) {
	g := newTestGraph()
	a, err := g.AddSource("a", 3)
	require.NoError(t, err)
	b, err := g.AddSource("b", 4)
	require.NoError(t, err)
	require.Equal(t, []Outlet{a, b}, g.InputOutlets())

	sum, err := g.WireNode("sum", sumOp{name: "Sum", arity: 2}, a, b)
	require.NoError(t, err)
	require.Len(t, sum, 1)
	fact, err := g.OutletFact(sum[0])
	require.NoError(t, err)
	require.Equal(t, sizeFact(7), fact)

	require.NoError(t, g.SetOutputOutlets(sum...))
	require.Equal(t, sum, g.OutputOutlets())
	require.NoError(t, g.Validate())

	node := g.NodeByName("sum")
	require.NotNil(t, node)
	require.Equal(t, []Outlet{a, b}, node.Inputs())
	require.Nil(t, g.NodeByName("missing"))

	successors, err := g.Successors(a)
	require.NoError(t, err)
	require.Equal(t, []Inlet{NewInlet(node.Id(), 0)}, successors)

	// Wiring fails if the operator can't compute its facts, and no node is created.
	_, err = g.WireNode("bad", sumOp{name: "Sum", arity: 2}, a)
	require.Error(t, err)
	require.Contains(t, err.Error(), `wiring node "bad"`)
	require.Equal(t, 3, g.NumNodes())
}

func TestAddNodeErrors(t *testing.T) {
	g := newTestGraph()
	_, err := g.AddNode("", sumOp{name: "Sum"}, nil)
	require.Error(t, err)

	_, err = g.AddNode("x", sumOp{name: "Sum"}, []sizeFact{1})
	require.NoError(t, err)
	_, err = g.AddNode("x", sumOp{name: "Sum"}, []sizeFact{1})
	require.ErrorIs(t, err, ErrDuplicateName)
	require.Equal(t, "x.1", g.UniqueName("x"))
	require.Equal(t, "y", g.UniqueName("y"))

	// Reserved names are skipped by UniqueName, but AddNode takes them.
	g.ReserveNames("y", "x.1")
	require.Equal(t, "y.1", g.UniqueName("y"))
	require.Equal(t, "x.2", g.UniqueName("x"))
	_, err = g.AddNode("y", sumOp{name: "Sum"}, []sizeFact{1})
	require.NoError(t, err)
}

func TestAddEdgeErrors(t *testing.T) {
	g := newTestGraph()
	a, err := g.AddSource("a", 1)
	require.NoError(t, err)
	id, err := g.AddNode("n", sumOp{name: "Sum", arity: 2}, []sizeFact{2})
	require.NoError(t, err)

	require.ErrorIs(t, g.AddEdge(NewOutlet(42, 0), NewInlet(id, 0)), ErrDanglingReference)
	require.ErrorIs(t, g.AddEdge(NewOutlet(a.Node, 1), NewInlet(id, 0)), ErrDanglingReference)
	require.ErrorIs(t, g.AddEdge(a, NewInlet(42, 0)), ErrDanglingReference)

	// Binding slot 1 first leaves slot 0 unbound.
	require.NoError(t, g.AddEdge(a, NewInlet(id, 1)))
	require.ErrorIs(t, g.AddEdge(a, NewInlet(id, 1)), ErrInletAlreadyBound)
	require.ErrorIs(t, g.Validate(), ErrUnboundInlet)

	require.NoError(t, g.AddEdge(a, NewInlet(id, 0)))
	require.NoError(t, g.Validate())

	// Fan-out: one outlet feeds both inlets.
	successors, err := g.Successors(a)
	require.NoError(t, err)
	require.Len(t, successors, 2)
}

func TestOutletFactErrors(t *testing.T) {
	g := newTestGraph()
	_, err := g.OutletFact(NewOutlet(0, 0))
	require.ErrorIs(t, err, ErrUnknownOutlet)
	a, err := g.AddSource("a", 1)
	require.NoError(t, err)
	_, err = g.OutletFact(NewOutlet(a.Node, 3))
	require.ErrorIs(t, err, ErrUnknownOutlet)
	require.ErrorIs(t, g.SetOutputOutlets(NewOutlet(a.Node, 3)), ErrUnknownOutlet)
	require.ErrorIs(t, g.SetOutletFact(NewOutlet(7, 0), 2), ErrUnknownOutlet)
	require.NoError(t, g.SetOutletFact(a, 2))
	fact, err := g.OutletFact(a)
	require.NoError(t, err)
	require.Equal(t, sizeFact(2), fact)
}

func TestArity(t *testing.T) {
	g := newTestGraph()
	a, err := g.AddSource("a", 1)
	require.NoError(t, err)
	id, err := g.AddNode("n", sumOp{name: "Sum", arity: 2}, []sizeFact{1})
	require.NoError(t, err)
	require.NoError(t, g.AddEdge(a, NewInlet(id, 0)))
	require.ErrorIs(t, g.Validate(), ErrUnboundInlet)

	// Dummy nodes are structurally valid whatever their inputs.
	g2 := newTestGraph()
	a2, err := g2.AddSource("a", 1)
	require.NoError(t, err)
	dummy, err := g2.AddDummy("placeholder", []sizeFact{1})
	require.NoError(t, err)
	require.NoError(t, g2.AddEdge(a2, NewInlet(dummy, 0)))
	require.NoError(t, g2.Validate())
}

func TestEvalOrder(t *testing.T) {
	g := newTestGraph()
	// Create nodes out of dependency order.
	late, err := g.AddNode("late", sumOp{name: "Sum", arity: 1}, []sizeFact{1})
	require.NoError(t, err)
	mid, err := g.AddNode("mid", sumOp{name: "Sum", arity: 1}, []sizeFact{1})
	require.NoError(t, err)
	src, err := g.AddSource("src", 1)
	require.NoError(t, err)
	require.NoError(t, g.AddEdge(src, NewInlet(mid, 0)))
	require.NoError(t, g.AddEdge(NewOutlet(mid, 0), NewInlet(late, 0)))

	order, err := g.EvalOrder()
	require.NoError(t, err)
	require.Equal(t, []NodeId{src.Node, mid, late}, order)
}

func TestCycle(t *testing.T) {
	g := newTestGraph()
	x, err := g.AddNode("x", sumOp{name: "Sum", arity: 1}, []sizeFact{1})
	require.NoError(t, err)
	y, err := g.AddNode("y", sumOp{name: "Sum", arity: 1}, []sizeFact{1})
	require.NoError(t, err)
	require.NoError(t, g.AddEdge(NewOutlet(x, 0), NewInlet(y, 0)))
	require.NoError(t, g.AddEdge(NewOutlet(y, 0), NewInlet(x, 0)))
	_, err = g.EvalOrder()
	require.ErrorIs(t, err, ErrCycle)
	require.ErrorIs(t, g.Validate(), ErrCycle)
}

func TestPropertiesAndString(t *testing.T) {
	g := newTestGraph()
	a, err := g.AddSource("a", 5)
	require.NoError(t, err)
	require.NoError(t, g.SetOutputOutlets(a))
	g.SetProperty("answer", 42)
	value, found := g.Property("answer")
	require.True(t, found)
	require.Equal(t, 42, value)
	_, found = g.Property("question")
	require.False(t, found)
	require.Len(t, g.Properties(), 1)

	s := g.String()
	require.Contains(t, s, "1 nodes")
	require.Contains(t, s, `"a" Source() -> size=5`)
}
