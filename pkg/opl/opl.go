// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package opl defines operators imported from ONNX that have no counterpart in the core vocabulary
// (Erf, IsNaN, IsInf, Lrn and OneHot), their registry for the interchange format, and their
// pulsifiers.
//
// Use WithOnnx to add the registry to an interchange framework, and RegisterPulsifiers as a
// contributor of pulse.DefaultTable:
//
//	framework := opl.WithOnnx(interchange.New(pulse.Registry()))
//	table := pulse.DefaultTable(opl.RegisterPulsifiers)
package opl

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/pulse/pkg/core/interchange"
	"github.com/gomlx/pulse/pkg/core/registry"
	"github.com/gomlx/pulse/pkg/pulse"
)

// Namespace of the registry.
const Namespace = "tract_onnx"

// Names of the operators in the interchange format.
const (
	NameErf    = "tract_onnx_erf"
	NameIsNaN  = "tract_onnx_is_nan"
	NameIsInf  = "tract_onnx_isinf"
	NameLrn    = "tract_onnx_lrn"
	NameOneHot = "tract_onnx_one_hot"
)

// Registry creates the registry of the operators of this package.
func Registry() *registry.Registry {
	r := registry.New(Namespace)
	r.RegisterUnitElementWise(NameErf, Erf{})
	r.RegisterElementWise(NameIsInf, KindIsInf, dumpIsInf, isInfParameters(), loadIsInf)
	r.RegisterUnitElementWise(NameIsNaN, IsNaN{})
	r.RegisterDumper(KindLrn, dumpLrn)
	r.RegisterPrimitive(NameLrn, lrnParameters(), loadLrn)
	r.Pair(KindLrn, NameLrn)
	r.RegisterDumper(KindOneHot, dumpOneHot)
	r.RegisterPrimitive(NameOneHot, oneHotParameters(), loadOneHot)
	r.Pair(KindOneHot, NameOneHot)
	if err := r.Check(); err != nil {
		exceptions.Panicf("opl.Registry: %v", err)
	}
	return r
}

// WithOnnx adds the registry of this package to the framework.
func WithOnnx(framework *interchange.Framework) *interchange.Framework {
	return framework.WithRegistry(Registry())
}

// RegisterPulsifiers registers the pulsifiers of the operators of this package.
func RegisterPulsifiers(table *pulse.Table) {
	table.Register(KindErf, pulse.ElementWisePulsifier)
	table.Register(KindIsNaN, pulse.ElementWisePulsifier)
	table.Register(KindIsInf, pulse.ElementWisePulsifier)
	table.Register(KindLrn, pulsifyLrn)
	table.Register(KindOneHot, pulsifyOneHot)
}
