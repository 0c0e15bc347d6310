// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pulse/pkg/core/facts"
)

// ElementWiseMiniOp is the scalar function applied by an ElementWise operator to every element.
type ElementWiseMiniOp interface {
	// Kind of the operator: the ElementWise wrapper reports the kind of its mini-op.
	Kind() Kind

	// Name of the function, e.g. "Erf".
	Name() string

	// OutputType returns the dtype of the output given the dtype of the input.
	OutputType(input dtypes.DType) dtypes.DType
}

// ElementWise applies the same scalar function to every element of its single input. The output has
// the same shape as the input, the dtype is given by the mini-op.
type ElementWise struct {
	Mini ElementWiseMiniOp
}

var _ Op = (*ElementWise)(nil)

// NewElementWise wraps mini as an operator.
func NewElementWise(mini ElementWiseMiniOp) *ElementWise {
	return &ElementWise{Mini: mini}
}

// Kind implements Op: it is the mini-op's kind, so registries and tables are keyed on the function.
func (op *ElementWise) Kind() Kind { return op.Mini.Kind() }

// Name implements Op.
func (op *ElementWise) Name() string { return op.Mini.Name() }

// NumInputs is always 1.
func (op *ElementWise) NumInputs() int { return 1 }

// String implements fmt.Stringer.
func (op *ElementWise) String() string { return fmt.Sprintf("ElementWise(%s)", op.Mini.Name()) }

// OutputFacts implements Op.
func (op *ElementWise) OutputFacts(inputs []facts.Static) ([]facts.Static, error) {
	if err := CheckInputs(op, inputs, 1); err != nil {
		return nil, err
	}
	shape := inputs[0].Shape().WithDType(op.Mini.OutputType(inputs[0].DType()))
	return []facts.Static{facts.NewStatic(shape)}, nil
}
