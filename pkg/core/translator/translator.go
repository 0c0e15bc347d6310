// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package translator implements the generic node-by-node graph rewrite driver.
//
// A Translator knows how to translate one node of a source graph into zero or more nodes of a target
// graph. TranslateModel walks the source graph in dependency order, so when a node is translated all
// the nodes producing its inputs have been translated already and their counterparts can be looked up
// in the Mapping (and their facts queried in the target graph).
//
// Translation either completes over the whole graph or fails at the first node that can't be
// translated. In that case the partially built target graph must be discarded.
package translator

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/gomlx/pulse/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Mapping maps source graph outlets to target graph outlets.
type Mapping map[graph.Outlet]graph.Outlet

// Translator translates one node of a source graph with facts SF and operators SO into a target graph
// with facts TF and operators TO.
type Translator[SF graph.Fact, SO graph.Op, TF graph.Fact, TO graph.Op] interface {
	// TranslateNode creates in target the counterpart of node, and returns the target outlets
	// corresponding to the node's outputs, in order.
	//
	// mapping holds the target outlets of every source outlet translated so far, in particular of all
	// node's inputs.
	TranslateNode(source *graph.Graph[SF, SO], node *graph.Node[SF, SO], target *graph.Graph[TF, TO],
		mapping Mapping) ([]graph.Outlet, error)
}

// TranslateModel translates source into target, which should be an empty graph.
func TranslateModel[SF graph.Fact, SO graph.Op, TF graph.Fact, TO graph.Op](
	t Translator[SF, SO, TF, TO], source *graph.Graph[SF, SO], target *graph.Graph[TF, TO]) error {
	_, err := TranslateModelWithMappings(t, source, target)
	return err
}

// TranslateModelWithMappings translates source into target, which should be an empty graph, and
// returns the mapping of every source outlet to its target outlet.
//
// The source node names are reserved in target, so nodes a translator adds with target.UniqueName
// never take the name of a source node translated later.
//
// After all nodes are translated, the source inputs and outputs are remapped to declare the target's
// inputs and outputs, and the source properties are copied over.
func TranslateModelWithMappings[SF graph.Fact, SO graph.Op, TF graph.Fact, TO graph.Op](
	t Translator[SF, SO, TF, TO], source *graph.Graph[SF, SO], target *graph.Graph[TF, TO]) (Mapping, error) {
	if err := source.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid source graph")
	}
	order, err := source.EvalOrder()
	if err != nil {
		return nil, err
	}

	target.ReserveNames(xslices.Map(source.Nodes(), (*graph.Node[SF, SO]).Name)...)
	mapping := make(Mapping, source.NumNodes())
	for _, id := range order {
		node := source.Node(id)
		var outlets []graph.Outlet
		var translateErr error
		err = exceptions.TryCatch[error](func() {
			outlets, translateErr = t.TranslateNode(source, node, target, mapping)
		})
		if err == nil {
			err = translateErr
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "translating node %q (op %s)", node.Name(), node.Op().Name())
		}
		if len(outlets) != node.NumOutputs() {
			return nil, errors.Errorf("translating node %q (op %s): translator returned %d outlets, node has %d outputs",
				node.Name(), node.Op().Name(), len(outlets), node.NumOutputs())
		}
		for slot, outlet := range outlets {
			mapping[graph.NewOutlet(id, slot)] = outlet
		}
		if klog.V(2).Enabled() {
			klog.Infof("translated node %q (op %s) -> %v", node.Name(), node.Op().Name(), outlets)
		}
	}

	remap := func(outlets []graph.Outlet) ([]graph.Outlet, error) {
		remapped := make([]graph.Outlet, len(outlets))
		for ii, outlet := range outlets {
			var found bool
			remapped[ii], found = mapping[outlet]
			if !found {
				return nil, errors.Errorf("source outlet %s has no counterpart in the translated graph", outlet)
			}
		}
		return remapped, nil
	}
	inputs, err := remap(source.InputOutlets())
	if err != nil {
		return nil, errors.WithMessage(err, "remapping inputs")
	}
	if err = target.SetInputOutlets(inputs...); err != nil {
		return nil, err
	}
	outputs, err := remap(source.OutputOutlets())
	if err != nil {
		return nil, errors.WithMessage(err, "remapping outputs")
	}
	if err = target.SetOutputOutlets(outputs...); err != nil {
		return nil, err
	}
	for name, value := range source.Properties() {
		target.SetProperty(name, value)
	}
	return mapping, nil
}

// Inputs returns the target outlets of the node's inputs, looked up in the mapping.
func Inputs[SF graph.Fact, SO graph.Op](node *graph.Node[SF, SO], mapping Mapping) ([]graph.Outlet, error) {
	inputs := node.Inputs()
	mapped := make([]graph.Outlet, len(inputs))
	for ii, input := range inputs {
		var found bool
		mapped[ii], found = mapping[input]
		if !found {
			return nil, errors.Errorf("input %d (%s) of node %q was not translated yet", ii, input, node.Name())
		}
	}
	return mapped, nil
}
