// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opl

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/gomlx/pulse/pkg/core/registry"
	"github.com/pkg/errors"
)

const (
	KindErf   ops.Kind = "onnx.Erf"
	KindIsNaN ops.Kind = "onnx.IsNaN"
	KindIsInf ops.Kind = "onnx.IsInf"
)

// Erf is the Gauss error function.
type Erf struct{}

var _ ops.ElementWiseMiniOp = Erf{}

func (Erf) Kind() ops.Kind { return KindErf }
func (Erf) Name() string { return "Erf" }

// OutputType is the input type.
func (Erf) OutputType(dtype dtypes.DType) dtypes.DType { return dtype }

// IsNaN tests whether each element is not-a-number.
type IsNaN struct{}

var _ ops.ElementWiseMiniOp = IsNaN{}

func (IsNaN) Kind() ops.Kind { return KindIsNaN }
func (IsNaN) Name() string { return "IsNaN" }

// OutputType is always dtypes.Bool.
func (IsNaN) OutputType(dtypes.DType) dtypes.DType { return dtypes.Bool }

// IsInf tests whether each element is an infinity, of the selected signs.
type IsInf struct {
	DetectPositive bool
	DetectNegative bool
}

var _ ops.ElementWiseMiniOp = IsInf{}

func (IsInf) Kind() ops.Kind { return KindIsInf }
func (IsInf) Name() string { return "IsInf" }

// OutputType is always dtypes.Bool.
func (IsInf) OutputType(dtypes.DType) dtypes.DType { return dtypes.Bool }

func isInfParameters() []registry.Parameter {
	return []registry.Parameter{
		registry.Logical("detect_positive").WithDefault(true),
		registry.Logical("detect_negative").WithDefault(true),
	}
}

func dumpIsInf(mini ops.ElementWiseMiniOp) (map[string]any, error) {
	op, ok := mini.(IsInf)
	if !ok {
		return nil, errors.Errorf("dumping IsInf: unexpected mini-op %T", mini)
	}
	return map[string]any{
		"detect_positive": op.DetectPositive,
		"detect_negative": op.DetectNegative,
	}, nil
}

func loadIsInf(args registry.Arguments) (ops.ElementWiseMiniOp, error) {
	return IsInf{
		DetectPositive: args.Bool("detect_positive"),
		DetectNegative: args.Bool("detect_negative"),
	}, nil
}
