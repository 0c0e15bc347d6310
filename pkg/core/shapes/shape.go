// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape, the element type plus dimensions of a value flowing on a graph edge.
//
// Dimensions are either concrete (a non-negative size) or dynamic. A dynamic axis is marked with
// DimDynamic in Dimensions and usually carries a name in AxisNames (e.g. "S" for an unbounded
// stream), so two shapes referring to the same symbolic extent can be matched.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a value.
//   - Axis: the index of a dimension. Here we try to refer to a dimension index as "axis"
//     (plural axes), and its size as its dimension.
//   - Dimension: the size of a value in one of its axes.
//   - DType: the data type of the unit element, enumeration defined in github.com/gomlx/gopjrt/dtypes.
//
// Example: `shapes.MakeDynamic(dtypes.Float32, "S", 10)` is a float32 value with an unbounded first
// axis named "S" and a second axis of size 10. It prints as `(Float32)[S 10]`.
package shapes

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// DimDynamic marks an axis whose size is not known at graph building time.
const DimDynamic = -1

// Shape represents the shape of the value produced by a graph node.
//
// Use Make or MakeDynamic to create a new shape.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int

	// AxisNames holds the symbol of each dynamic axis. It is either nil or has the same
	// length as Dimensions, with "" for concrete axes.
	AxisNames []string
}

// Make returns a Shape structure filled with the values given.
// Dimensions must be concrete (>= 0), see MakeDynamic for symbolic axes.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension < 0", s)
		}
	}
	return s
}

// MakeDynamic returns a Shape where each dimension is either an int (a concrete size, or DimDynamic for
// an unnamed dynamic axis) or a string, the name of a dynamic axis.
func MakeDynamic(dtype dtypes.DType, dimensions ...any) Shape {
	s := Shape{DType: dtype, Dimensions: make([]int, len(dimensions))}
	names := make([]string, len(dimensions))
	for axis, dim := range dimensions {
		switch d := dim.(type) {
		case int:
			if d < 0 && d != DimDynamic {
				exceptions.Panicf("shapes.MakeDynamic: invalid dimension %d for axis %d", d, axis)
			}
			s.Dimensions[axis] = d
		case string:
			if d == "" {
				exceptions.Panicf("shapes.MakeDynamic: empty axis name for axis %d", axis)
			}
			s.Dimensions[axis] = DimDynamic
			names[axis] = d
		default:
			exceptions.Panicf("shapes.MakeDynamic: dimension for axis %d must be int or string, got %T", axis, dim)
		}
	}
	if slices.ContainsFunc(names, func(n string) bool { return n != "" }) {
		s.AxisNames = names
	}
	return s
}

// Ok returns whether this is a valid Shape. A "zero" shape, that is just instantiating it with Shape{} will be invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// adjustAxis converts a negative axis to its positive counterpart, and panics if out-of-bounds.
func (s Shape) adjustAxis(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("axis %d out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return adjustedAxis
}

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
// Like with a slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	return s.Dimensions[s.adjustAxis(axis)]
}

// AxisName returns the name of the given axis, or "" if it is not named.
func (s Shape) AxisName(axis int) string {
	axis = s.adjustAxis(axis)
	if s.AxisNames == nil {
		return ""
	}
	return s.AxisNames[axis]
}

// AxisOf returns the first axis named name, or -1 if there is none.
func (s Shape) AxisOf(name string) int {
	return slices.Index(s.AxisNames, name)
}

// HasNamedAxes returns whether any of the axes has a name.
func (s Shape) HasNamedAxes() bool {
	return slices.ContainsFunc(s.AxisNames, func(n string) bool { return n != "" })
}

// WithDim returns a copy of the shape with the given axis set to a concrete dimension.
// The name of the axis, if any, is dropped.
func (s Shape) WithDim(axis, dim int) Shape {
	if dim < 0 {
		exceptions.Panicf("Shape.WithDim(%d, %d): dimension must be >= 0", axis, dim)
	}
	axis = s.adjustAxis(axis)
	s2 := s.Clone()
	s2.Dimensions[axis] = dim
	if s2.AxisNames != nil {
		s2.AxisNames[axis] = ""
		if !s2.HasNamedAxes() {
			s2.AxisNames = nil
		}
	}
	return s2
}

// WithNamedDim returns a copy of the shape with the given axis marked as dynamic, with the given name.
func (s Shape) WithNamedDim(axis int, name string) Shape {
	axis = s.adjustAxis(axis)
	s2 := s.Clone()
	s2.Dimensions[axis] = DimDynamic
	if s2.AxisNames == nil {
		s2.AxisNames = make([]string, s2.Rank())
	}
	s2.AxisNames[axis] = name
	return s2
}

// WithDType returns a copy of the shape with a different dtype.
func (s Shape) WithDType(dtype dtypes.DType) Shape {
	s2 := s.Clone()
	s2.DType = dtype
	return s2
}

// InsertAxis returns a copy of the shape with a new concrete axis inserted at position axis.
// axis can be equal to the rank, to append an axis.
func (s Shape) InsertAxis(axis, dim int) Shape {
	if axis < 0 || axis > s.Rank() {
		exceptions.Panicf("Shape.InsertAxis(%d): out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	s2 := s.Clone()
	s2.Dimensions = slices.Insert(s2.Dimensions, axis, dim)
	if s2.AxisNames != nil {
		s2.AxisNames = slices.Insert(s2.AxisNames, axis, "")
	}
	return s2
}

// String implements stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	parts := make([]string, s.Rank())
	for axis, dim := range s.Dimensions {
		switch {
		case dim != DimDynamic:
			parts[axis] = strconv.Itoa(dim)
		case s.AxisName(axis) != "":
			parts[axis] = s.AxisName(axis)
		default:
			parts[axis] = "?"
		}
	}
	return fmt.Sprintf("(%s)[%s]", s.DType, strings.Join(parts, " "))
}

// Equal compares two shapes for equality: dtype, dimensions and axis names are compared.
// A nil AxisNames is equal to one with only empty names.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType {
		return false
	}
	return s.EqualDimensions(s2)
}

// EqualDimensions compares two shapes for equality of dimensions (and axis names). Dtypes can be different.
func (s Shape) EqualDimensions(s2 Shape) bool {
	if s.Rank() != s2.Rank() {
		return false
	}
	if !slices.Equal(s.Dimensions, s2.Dimensions) {
		return false
	}
	for axis := range s.Dimensions {
		if s.AxisName(axis) != s2.AxisName(axis) {
			return false
		}
	}
	return true
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	s2.AxisNames = slices.Clone(s.AxisNames)
	return
}

// ParseDType converts a dtype name (case-insensitive, e.g. "float32" or "Float32") to a dtypes.DType.
func ParseDType(name string) (dtypes.DType, bool) {
	if dtype, found := dtypes.MapOfNames[name]; found {
		return dtype, true
	}
	for key, dtype := range dtypes.MapOfNames {
		if strings.EqualFold(key, name) {
			return dtype, true
		}
	}
	return dtypes.InvalidDType, false
}
