// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph implements a generic model graph: nodes holding an operator and one fact per output,
// connected by edges from a producer's output slot (Outlet) to a consumer's input slot (Inlet).
//
// The graph is generic on the fact type F (e.g. facts.Static or facts.Pulsed) and on the operator
// type O. The few things the graph machinery needs to know about operators (how to create a source
// or a placeholder, how to compute output facts when wiring a node) are provided by a Family.
//
// A Graph under construction is owned by a single writer. Node creation never validates that all
// inputs are connected: Validate checks the whole graph once, before it is translated or executed.
package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/pulse/pkg/support/sets"
	"github.com/pkg/errors"
)

// Sentinel errors returned (wrapped with context) by Graph methods. Use errors.Is to test for them.
var (
	ErrDanglingReference = errors.New("dangling reference")
	ErrInletAlreadyBound = errors.New("inlet already bound")
	ErrUnknownOutlet     = errors.New("unknown outlet")
	ErrUnboundInlet      = errors.New("unbound inlet")
	ErrCycle             = errors.New("graph has a cycle")
	ErrDuplicateName     = errors.New("duplicate node name")
)

// Fact is the constraint on the type describing values flowing on edges.
type Fact interface {
	String() string
}

// Op is the constraint on the operator type held by nodes.
type Op interface {
	Name() string
}

// Family provides the operator-dependent behavior the graph machinery needs.
type Family[F Fact, O Op] interface {
	// IsSource returns whether op is the graph's source marker: no data inputs, represents where
	// the data enters the graph.
	IsSource(op O) bool

	// IsDummy returns whether op is a structurally valid no-op placeholder.
	IsDummy(op O) bool

	// CreateSource returns a source operator for the given fact.
	CreateSource(fact F) O

	// CreateDummy returns a placeholder operator.
	CreateDummy() O

	// OutputFacts computes the output facts of op given its input facts.
	OutputFacts(op O, inputs []F) ([]F, error)

	// Arity returns the number of inputs op expects, or -1 if it accepts any number.
	Arity(op O) int
}

// NodeId is the index of a node within its Graph.
type NodeId int

// InvalidNodeId indicates a missing node.
const InvalidNodeId = NodeId(-1)

// Outlet identifies an output slot of a node.
type Outlet struct {
	Node NodeId
	Slot int
}

// NewOutlet is a shortcut to Outlet{Node: node, Slot: slot}.
func NewOutlet(node NodeId, slot int) Outlet { return Outlet{Node: node, Slot: slot} }

// Ok returns whether the outlet refers to some node.
func (o Outlet) Ok() bool { return o.Node >= 0 }

// String implements fmt.Stringer: "#node" for slot 0, "#node:slot" otherwise.
func (o Outlet) String() string {
	if o.Slot == 0 {
		return fmt.Sprintf("#%d", o.Node)
	}
	return fmt.Sprintf("#%d:%d", o.Node, o.Slot)
}

var invalidOutlet = Outlet{Node: InvalidNodeId}

// Inlet identifies an input slot of a node.
type Inlet struct {
	Node NodeId
	Slot int
}

// NewInlet is a shortcut to Inlet{Node: node, Slot: slot}.
func NewInlet(node NodeId, slot int) Inlet { return Inlet{Node: node, Slot: slot} }

// String implements fmt.Stringer.
func (i Inlet) String() string { return fmt.Sprintf("#%d>%d", i.Node, i.Slot) }

// Graph owns an ordered collection of nodes and the edges connecting them.
type Graph[F Fact, O Op] struct {
	family Family[F, O]
	nodes  []*Node[F, O]
	names  map[string]NodeId

	// reserved names are skipped by UniqueName, but can still be given to AddNode.
	reserved sets.Set[string]

	inputs  []Outlet
	outputs []Outlet

	properties map[string]any
}

// New creates an empty graph for the given operator family.
func New[F Fact, O Op](family Family[F, O]) *Graph[F, O] {
	return &Graph[F, O]{
		family:     family,
		names:      make(map[string]NodeId),
		reserved:   sets.Make[string](),
		properties: make(map[string]any),
	}
}

// Family of operators of the graph.
func (g *Graph[F, O]) Family() Family[F, O] { return g.family }

// NumNodes returns the number of nodes in the graph.
func (g *Graph[F, O]) NumNodes() int { return len(g.nodes) }

// Nodes returns the nodes of the graph, in creation order. The slice must not be modified.
func (g *Graph[F, O]) Nodes() []*Node[F, O] { return g.nodes }

// Node returns the node with the given id, or nil if it doesn't exist.
func (g *Graph[F, O]) Node(id NodeId) *Node[F, O] {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// NodeByName returns the node with the given name, or nil if there is none.
func (g *Graph[F, O]) NodeByName(name string) *Node[F, O] {
	id, found := g.names[name]
	if !found {
		return nil
	}
	return g.nodes[id]
}

// ReserveNames marks names that nodes added later will take, so UniqueName doesn't hand them out.
// AddNode accepts reserved names.
func (g *Graph[F, O]) ReserveNames(names ...string) {
	g.reserved.Insert(names...)
}

func (g *Graph[F, O]) nameTaken(name string) bool {
	_, found := g.names[name]
	return found || g.reserved.Has(name)
}

// UniqueName returns prefix if it is neither used by a node nor reserved, otherwise prefix suffixed
// with a counter.
func (g *Graph[F, O]) UniqueName(prefix string) string {
	if !g.nameTaken(prefix) {
		return prefix
	}
	for ii := 1; ; ii++ {
		name := fmt.Sprintf("%s.%d", prefix, ii)
		if !g.nameTaken(name) {
			return name
		}
	}
}

// AddNode creates a node with the given operator and one output per fact. Inputs are connected
// separately with AddEdge.
func (g *Graph[F, O]) AddNode(name string, op O, outputFacts []F) (NodeId, error) {
	if name == "" {
		return InvalidNodeId, errors.Errorf("cannot add node with empty name (op %s)", op.Name())
	}
	if _, found := g.names[name]; found {
		return InvalidNodeId, errors.Wrapf(ErrDuplicateName, "node %q", name)
	}
	id := NodeId(len(g.nodes))
	node := &Node[F, O]{
		id:      id,
		name:    name,
		op:      op,
		outputs: make([]outletData[F], len(outputFacts)),
	}
	for ii, fact := range outputFacts {
		node.outputs[ii].fact = fact
	}
	g.nodes = append(g.nodes, node)
	g.names[name] = id
	return id, nil
}

// AddSource creates a source node for the given fact, and appends it to the graph's inputs.
func (g *Graph[F, O]) AddSource(name string, fact F) (Outlet, error) {
	id, err := g.AddNode(name, g.family.CreateSource(fact), []F{fact})
	if err != nil {
		return invalidOutlet, err
	}
	outlet := NewOutlet(id, 0)
	g.inputs = append(g.inputs, outlet)
	return outlet, nil
}

// AddDummy creates a placeholder node with the given output facts.
func (g *Graph[F, O]) AddDummy(name string, outputFacts []F) (NodeId, error) {
	return g.AddNode(name, g.family.CreateDummy(), outputFacts)
}

// AddEdge connects outlet to inlet.
//
// It fails with ErrDanglingReference if either endpoint doesn't exist, or ErrInletAlreadyBound if the
// inlet is already connected.
func (g *Graph[F, O]) AddEdge(outlet Outlet, inlet Inlet) error {
	src := g.Node(outlet.Node)
	if src == nil || outlet.Slot < 0 || outlet.Slot >= len(src.outputs) {
		return errors.Wrapf(ErrDanglingReference, "edge %s -> %s: outlet doesn't exist", outlet, inlet)
	}
	dst := g.Node(inlet.Node)
	if dst == nil || inlet.Slot < 0 {
		return errors.Wrapf(ErrDanglingReference, "edge %s -> %s: inlet node doesn't exist", outlet, inlet)
	}
	for len(dst.inputs) <= inlet.Slot {
		dst.inputs = append(dst.inputs, invalidOutlet)
	}
	if previous := dst.inputs[inlet.Slot]; previous.Ok() {
		return errors.Wrapf(ErrInletAlreadyBound, "edge %s -> %s: inlet of node %q is already bound to %s",
			outlet, inlet, dst.name, previous)
	}
	dst.inputs[inlet.Slot] = outlet
	src.outputs[outlet.Slot].successors = append(src.outputs[outlet.Slot].successors, inlet)
	return nil
}

// WireNode computes the output facts of op from the facts of inputs, creates the node, connects
// inputs[i] to its i-th inlet and returns the node's outlets.
func (g *Graph[F, O]) WireNode(name string, op O, inputs ...Outlet) ([]Outlet, error) {
	inputFacts := make([]F, len(inputs))
	for ii, input := range inputs {
		fact, err := g.OutletFact(input)
		if err != nil {
			return nil, errors.WithMessagef(err, "wiring node %q (op %s), input #%d", name, op.Name(), ii)
		}
		inputFacts[ii] = fact
	}
	outputFacts, err := g.family.OutputFacts(op, inputFacts)
	if err != nil {
		return nil, errors.WithMessagef(err, "wiring node %q (op %s)", name, op.Name())
	}
	id, err := g.AddNode(name, op, outputFacts)
	if err != nil {
		return nil, err
	}
	for ii, input := range inputs {
		if err = g.AddEdge(input, NewInlet(id, ii)); err != nil {
			return nil, err
		}
	}
	return g.nodes[id].Outlets(), nil
}

// OutletFact returns the fact of the given outlet, or ErrUnknownOutlet.
func (g *Graph[F, O]) OutletFact(outlet Outlet) (fact F, err error) {
	node := g.Node(outlet.Node)
	if node == nil || outlet.Slot < 0 || outlet.Slot >= len(node.outputs) {
		err = errors.Wrapf(ErrUnknownOutlet, "outlet %s", outlet)
		return
	}
	return node.outputs[outlet.Slot].fact, nil
}

// SetOutletFact replaces the fact of the given outlet.
func (g *Graph[F, O]) SetOutletFact(outlet Outlet, fact F) error {
	node := g.Node(outlet.Node)
	if node == nil || outlet.Slot < 0 || outlet.Slot >= len(node.outputs) {
		return errors.Wrapf(ErrUnknownOutlet, "outlet %s", outlet)
	}
	node.outputs[outlet.Slot].fact = fact
	return nil
}

// Successors returns the inlets fed by outlet.
func (g *Graph[F, O]) Successors(outlet Outlet) ([]Inlet, error) {
	node := g.Node(outlet.Node)
	if node == nil || outlet.Slot < 0 || outlet.Slot >= len(node.outputs) {
		return nil, errors.Wrapf(ErrUnknownOutlet, "outlet %s", outlet)
	}
	return slices.Clone(node.outputs[outlet.Slot].successors), nil
}

// InputOutlets returns the graph's inputs, usually the outlets of its source nodes.
func (g *Graph[F, O]) InputOutlets() []Outlet { return slices.Clone(g.inputs) }

// SetInputOutlets replaces the graph's inputs.
func (g *Graph[F, O]) SetInputOutlets(outlets ...Outlet) error {
	if err := g.checkOutlets(outlets); err != nil {
		return errors.WithMessage(err, "SetInputOutlets")
	}
	g.inputs = slices.Clone(outlets)
	return nil
}

// OutputOutlets returns the graph's declared outputs.
func (g *Graph[F, O]) OutputOutlets() []Outlet { return slices.Clone(g.outputs) }

// SetOutputOutlets declares the graph's outputs.
func (g *Graph[F, O]) SetOutputOutlets(outlets ...Outlet) error {
	if err := g.checkOutlets(outlets); err != nil {
		return errors.WithMessage(err, "SetOutputOutlets")
	}
	g.outputs = slices.Clone(outlets)
	return nil
}

func (g *Graph[F, O]) checkOutlets(outlets []Outlet) error {
	for _, outlet := range outlets {
		if _, err := g.OutletFact(outlet); err != nil {
			return err
		}
	}
	return nil
}

// Properties returns the graph's named properties. The map must not be modified, use SetProperty.
func (g *Graph[F, O]) Properties() map[string]any { return g.properties }

// Property returns the named property and whether it is set.
func (g *Graph[F, O]) Property(name string) (value any, found bool) {
	value, found = g.properties[name]
	return
}

// SetProperty sets a named property of the graph.
func (g *Graph[F, O]) SetProperty(name string, value any) {
	g.properties[name] = value
}

// String pretty-prints the graph, one node per line.
func (g *Graph[F, O]) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Graph: %s nodes, inputs %v, outputs %v\n",
		humanize.Comma(int64(len(g.nodes))), g.inputs, g.outputs)
	for _, node := range g.nodes {
		_, _ = fmt.Fprintf(&sb, "\t%s\n", node)
	}
	return sb.String()
}
