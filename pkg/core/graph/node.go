// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"slices"
	"strings"
)

// Node of a Graph: an operator instance with its input connections and one fact per output.
//
// Nodes are owned by their Graph, and are only modified through it.
type Node[F Fact, O Op] struct {
	id      NodeId
	name    string
	op      O
	inputs  []Outlet
	outputs []outletData[F]
}

type outletData[F Fact] struct {
	fact       F
	successors []Inlet
}

// Id is the index of the node within its Graph.
func (n *Node[F, O]) Id() NodeId { return n.id }

// Name of the node, unique within its Graph.
func (n *Node[F, O]) Name() string { return n.name }

// Op returns the node's operator.
func (n *Node[F, O]) Op() O { return n.op }

// Inputs returns the outlets connected to the node's inlets. Unbound inlets hold an outlet
// for which Ok() returns false.
func (n *Node[F, O]) Inputs() []Outlet { return slices.Clone(n.inputs) }

// NumInputs returns the number of inlets known so far (the highest bound slot plus one).
func (n *Node[F, O]) NumInputs() int { return len(n.inputs) }

// NumOutputs returns the number of outputs of the node.
func (n *Node[F, O]) NumOutputs() int { return len(n.outputs) }

// OutputFacts returns the facts of the node's outputs.
func (n *Node[F, O]) OutputFacts() []F {
	facts := make([]F, len(n.outputs))
	for ii, output := range n.outputs {
		facts[ii] = output.fact
	}
	return facts
}

// Outlets returns the node's outlets, in slot order.
func (n *Node[F, O]) Outlets() []Outlet {
	outlets := make([]Outlet, len(n.outputs))
	for ii := range n.outputs {
		outlets[ii] = NewOutlet(n.id, ii)
	}
	return outlets
}

// String implements fmt.Stringer.
func (n *Node[F, O]) String() string {
	inputs := make([]string, len(n.inputs))
	for ii, input := range n.inputs {
		if input.Ok() {
			inputs[ii] = input.String()
		} else {
			inputs[ii] = "<unbound>"
		}
	}
	outputs := make([]string, len(n.outputs))
	for ii, output := range n.outputs {
		outputs[ii] = output.fact.String()
	}
	return fmt.Sprintf("#%d %q %s(%s) -> %s", n.id, n.name, n.op.Name(),
		strings.Join(inputs, ", "), strings.Join(outputs, ", "))
}
