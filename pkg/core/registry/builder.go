// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package registry

import (
	"slices"

	"github.com/gomlx/pulse/pkg/core/facts"
	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/pkg/errors"
)

// Builder is handed to load functions to create the nodes implementing one invocation.
//
// The first node wired takes the invocation's name, following ones get unique names derived from it.
type Builder struct {
	model  *ops.TypedModel
	name   string
	inputs []graph.Outlet
	wired  int
}

// NewBuilder creates a Builder adding nodes to model.
func NewBuilder(model *ops.TypedModel, name string, inputs []graph.Outlet) *Builder {
	return &Builder{model: model, name: name, inputs: slices.Clone(inputs)}
}

// Model being built.
func (b *Builder) Model() *ops.TypedModel { return b.model }

// Name of the invocation being loaded.
func (b *Builder) Name() string { return b.name }

// Inputs of the invocation.
func (b *Builder) Inputs() []graph.Outlet { return slices.Clone(b.inputs) }

// InputFact returns the fact of the i-th input of the invocation.
func (b *Builder) InputFact(i int) (facts.Static, error) {
	if i < 0 || i >= len(b.inputs) {
		return facts.Static{}, errors.Errorf("invocation %q has %d inputs, requested input #%d", b.name, len(b.inputs), i)
	}
	return b.model.OutletFact(b.inputs[i])
}

// Wire adds a node with op fed by inputs, see graph.Graph.WireNode.
func (b *Builder) Wire(op ops.Op, inputs ...graph.Outlet) ([]graph.Outlet, error) {
	name := b.name
	if b.wired > 0 {
		name = b.model.UniqueName(b.name + "." + op.Name())
	}
	outlets, err := b.model.WireNode(name, op, inputs...)
	if err != nil {
		return nil, err
	}
	b.wired++
	return outlets, nil
}
