// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ops defines the contract every operator kind satisfies, the core marker operators (Source,
// Dummy), the element-wise operator wrapper, and the typed (static facts) model built on them.
//
// Each concrete operator variant is identified by a Kind, a string tag chosen when the operator is
// defined (by convention "namespace.Name"). Kinds are the keys of the operator registry and of the
// pulsifier table: operator kinds unknown to this package can be added by any other package.
package ops

import (
	"github.com/gomlx/pulse/pkg/core/facts"
	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/pkg/errors"
)

// Kind identifies a concrete operator variant, independently of any node instance.
type Kind string

// String implements fmt.Stringer.
func (k Kind) String() string { return string(k) }

// Op is the interface every operator kind implements.
type Op interface {
	// Kind returns the operator kind identity.
	Kind() Kind

	// Name is a human-readable name of the operator, used in errors and dumps.
	Name() string

	// OutputFacts computes the output facts from the input facts.
	OutputFacts(inputs []facts.Static) ([]facts.Static, error)
}

// IsSource returns whether op declares itself a source: it has no data inputs and represents the point
// where data enters the graph. Operators declare it by implementing `IsSource() bool`.
func IsSource(op any) bool {
	s, ok := op.(interface{ IsSource() bool })
	return ok && s.IsSource()
}

// IsDummy returns whether op declares itself a placeholder, by implementing `IsDummy() bool`.
func IsDummy(op any) bool {
	d, ok := op.(interface{ IsDummy() bool })
	return ok && d.IsDummy()
}

// Arity returns the number of inputs op expects if it implements `NumInputs() int`, otherwise -1.
func Arity(op any) int {
	if a, ok := op.(interface{ NumInputs() int }); ok {
		return a.NumInputs()
	}
	return -1
}

// CheckInputs returns an error if the number of inputs doesn't match.
func CheckInputs[F any](op Op, inputs []F, expected int) error {
	if len(inputs) != expected {
		return errors.Errorf("%s expects %d input(s), got %d", op.Name(), expected, len(inputs))
	}
	return nil
}

const (
	KindSource Kind = "core.Source"
	KindDummy  Kind = "core.Dummy"
)

// Source is the typed source operator: it outputs the fact it was created with.
type Source struct {
	Fact facts.Static
}

var _ Op = (*Source)(nil)

func (*Source) Kind() Kind { return KindSource }
func (*Source) Name() string { return "Source" }
func (*Source) IsSource() bool { return true }
func (*Source) NumInputs() int { return 0 }
func (op *Source) String() string { return "Source" + op.Fact.String() }

// OutputFacts implements Op.
func (op *Source) OutputFacts(inputs []facts.Static) ([]facts.Static, error) {
	if err := CheckInputs(op, inputs, 0); err != nil {
		return nil, err
	}
	return []facts.Static{op.Fact}, nil
}

// Dummy is a structurally valid no-op, standing in for an operator a pass intentionally erases.
// It passes its input facts through.
type Dummy struct{}

var _ Op = (*Dummy)(nil)

func (*Dummy) Kind() Kind { return KindDummy }
func (*Dummy) Name() string { return "Dummy" }
func (*Dummy) IsDummy() bool { return true }

// OutputFacts implements Op.
func (*Dummy) OutputFacts(inputs []facts.Static) ([]facts.Static, error) {
	return inputs, nil
}

// TypedFamily implements graph.Family for models with static facts.
type TypedFamily struct{}

var _ graph.Family[facts.Static, Op] = TypedFamily{}

func (TypedFamily) IsSource(op Op) bool { return IsSource(op) }
func (TypedFamily) IsDummy(op Op) bool { return IsDummy(op) }
func (TypedFamily) CreateSource(fact facts.Static) Op { return &Source{Fact: fact} }
func (TypedFamily) CreateDummy() Op { return &Dummy{} }
func (TypedFamily) Arity(op Op) int { return Arity(op) }
func (TypedFamily) OutputFacts(op Op, inputs []facts.Static) ([]facts.Static, error) {
	return op.OutputFacts(inputs)
}

// TypedModel is a model with static facts.
type TypedModel = graph.Graph[facts.Static, Op]

// TypedNode is a node of a TypedModel.
type TypedNode = graph.Node[facts.Static, Op]

// NewTypedModel creates an empty TypedModel.
func NewTypedModel() *TypedModel {
	return graph.New[facts.Static, Op](TypedFamily{})
}
