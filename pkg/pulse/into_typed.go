// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pulse

import (
	"github.com/gomlx/pulse/pkg/core/facts"
	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/gomlx/pulse/pkg/core/translator"
	"github.com/pkg/errors"
)

// PropertyDelay is the typed model property holding the delay of each output of the pulsed model it
// was translated from, as []int64.
const PropertyDelay = "pulse.delay"

// intoTyped translates a pulsed model into a typed one, node by node, using the static facts of each
// operator.
type intoTyped struct{}

var _ translator.Translator[facts.Pulsed, PulsedOp, facts.Static, ops.Op] = intoTyped{}

// TranslateNode implements translator.Translator.
func (intoTyped) TranslateNode(_ *PulsedModel, node *PulsedNode, target *ops.TypedModel,
	mapping translator.Mapping) ([]graph.Outlet, error) {
	if ops.IsSource(node.Op()) {
		outlet, err := target.AddSource(node.Name(), node.OutputFacts()[0].IntoStatic())
		if err != nil {
			return nil, err
		}
		return []graph.Outlet{outlet}, nil
	}
	if ops.IsDummy(node.Op()) && node.NumInputs() == 0 {
		pulsedFacts := node.OutputFacts()
		staticFacts := make([]facts.Static, len(pulsedFacts))
		for ii, fact := range pulsedFacts {
			staticFacts[ii] = fact.IntoStatic()
		}
		id, err := target.AddDummy(node.Name(), staticFacts)
		if err != nil {
			return nil, err
		}
		return target.Node(id).Outlets(), nil
	}
	inputs, err := translator.Inputs(node, mapping)
	if err != nil {
		return nil, err
	}
	return target.WireNode(node.Name(), Typed(node.Op()), inputs...)
}

// IntoTyped translates a pulsed model back into a typed model, where the streaming axes hold the pulse
// size. The delays of the pulsed model's outputs are stored in the property PropertyDelay.
func IntoTyped(model *PulsedModel) (*ops.TypedModel, error) {
	delays, err := Delays(model)
	if err != nil {
		return nil, err
	}
	typed := ops.NewTypedModel()
	if err = translator.TranslateModel(intoTyped{}, model, typed); err != nil {
		return nil, errors.WithMessage(err, "translating pulsed model into typed model")
	}
	typed.SetProperty(PropertyDelay, delays)
	return typed, nil
}

// Delays returns the delay of each declared output of the pulsed model, in order.
func Delays(model *PulsedModel) ([]int64, error) {
	outputs := model.OutputOutlets()
	delays := make([]int64, len(outputs))
	for ii, outlet := range outputs {
		fact, err := model.OutletFact(outlet)
		if err != nil {
			return nil, errors.WithMessagef(err, "output #%d", ii)
		}
		delays[ii] = int64(fact.Delay())
	}
	return delays, nil
}
