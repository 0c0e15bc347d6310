// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/pulse/pkg/support/sets"
	"github.com/pkg/errors"
)

// EvalOrder returns all nodes in an order consistent with their dependencies: every node comes after
// the nodes producing its inputs. Ties are broken by node id, so a graph built in dependency order
// is returned in creation order.
//
// It fails with ErrCycle if the edge relation is not acyclic.
func (g *Graph[F, O]) EvalOrder() ([]NodeId, error) {
	numNodes := len(g.nodes)
	inDegree := make([]int, numNodes)
	dependents := make([][]NodeId, numNodes)
	for _, node := range g.nodes {
		producers := sets.Make[NodeId](len(node.inputs))
		for _, input := range node.inputs {
			if input.Ok() {
				producers.Insert(input.Node)
			}
		}
		inDegree[node.id] = len(producers)
		for producer := range producers {
			dependents[producer] = append(dependents[producer], node.id)
		}
	}

	// ready is kept sorted by id.
	ready := make([]NodeId, 0, numNodes)
	for id := range numNodes {
		if inDegree[id] == 0 {
			ready = append(ready, NodeId(id))
		}
	}
	order := make([]NodeId, 0, numNodes)
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, dependent := range dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = insertSorted(ready, dependent)
			}
		}
	}
	if len(order) != numNodes {
		stuck := make([]string, 0, numNodes-len(order))
		for id := range numNodes {
			if inDegree[id] > 0 {
				stuck = append(stuck, g.nodes[id].name)
			}
		}
		return nil, errors.Wrapf(ErrCycle, "nodes %q are part of or depend on a cycle", stuck)
	}
	return order, nil
}

func insertSorted(ids []NodeId, id NodeId) []NodeId {
	pos := len(ids)
	for pos > 0 && ids[pos-1] > id {
		pos--
	}
	ids = append(ids, 0)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = id
	return ids
}

// Validate checks the graph is ready to be translated or executed: every inlet is bound to an
// outlet, operators declaring their arity have exactly that many inputs, and the graph is acyclic.
// Placeholder (dummy) nodes are exempt from the arity check.
func (g *Graph[F, O]) Validate() error {
	for _, node := range g.nodes {
		for slot, input := range node.inputs {
			if !input.Ok() {
				return errors.Wrapf(ErrUnboundInlet, "node %q (op %s), inlet %d", node.name, node.op.Name(), slot)
			}
		}
		if g.family.IsDummy(node.op) {
			continue
		}
		if arity := g.family.Arity(node.op); arity >= 0 && arity != len(node.inputs) {
			if arity > len(node.inputs) {
				return errors.Wrapf(ErrUnboundInlet, "node %q (op %s) expects %d inputs, only %d bound",
					node.name, node.op.Name(), arity, len(node.inputs))
			}
			return errors.Errorf("node %q (op %s) expects %d inputs, got %d",
				node.name, node.op.Name(), arity, len(node.inputs))
		}
	}
	_, err := g.EvalOrder()
	return err
}
