// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package facts describes the values flowing on the edges of a model.
//
// A Static fact is a shape (element type and dimensions) of a value computed in one go. A Pulsed
// fact describes a value consumed as a stream: one axis is the streaming axis, whose runtime extent
// is the pulse (window) size, and the fact carries the delay accumulated upstream, the number of
// leading stream positions that are not yet valid.
//
// Facts are immutable: every transformation returns a new fact.
package facts

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pulse/pkg/core/shapes"
)

// Static is the fact of a value in a whole-tensor (batch) model.
type Static struct {
	shape shapes.Shape
}

// NewStatic creates a Static fact from a shape. The shape is cloned.
func NewStatic(shape shapes.Shape) Static {
	if !shape.Ok() {
		exceptions.Panicf("facts.NewStatic: invalid shape %s", shape)
	}
	return Static{shape: shape.Clone()}
}

// MakeStatic is a shortcut to NewStatic(shapes.MakeDynamic(dtype, dims...)): each dimension is either
// an int or the name of a symbolic axis.
func MakeStatic(dtype dtypes.DType, dims ...any) Static {
	return NewStatic(shapes.MakeDynamic(dtype, dims...))
}

// Shape returns a copy of the fact's shape.
func (f Static) Shape() shapes.Shape { return f.shape.Clone() }

// DType of the value.
func (f Static) DType() dtypes.DType { return f.shape.DType }

// Rank of the value.
func (f Static) Rank() int { return f.shape.Rank() }

// Equal is structural equality.
func (f Static) Equal(other Static) bool { return f.shape.Equal(other.shape) }

// String implements fmt.Stringer.
func (f Static) String() string { return f.shape.String() }

// StreamInfo describes the streaming axis of a Pulsed fact.
type StreamInfo struct {
	// Axis is the streaming axis.
	Axis int

	// Dim is the logical (whole stream) extent of the streaming axis. It is usually
	// symbolic (shapes.DimDynamic), with its name in AxisName.
	Dim      int
	AxisName string

	// Delay is the number of leading stream positions not yet valid.
	Delay int
}

// Pulsed is the fact of a value in a streaming model.
//
// The shape stored holds the pulse size on the streaming axis. Facts without stream information
// (HasStream() == false) describe values that don't depend on the stream, like weights.
type Pulsed struct {
	shape  shapes.Shape
	stream *StreamInfo
}

// NewPulsed creates a Pulsed fact from a Static one, streaming on the given axis with windows of pulse
// positions and the given initial delay.
//
// It panics if axis is out-of-range, pulse <= 0 or delay < 0.
func NewPulsed(static Static, axis, pulse, delay int) Pulsed {
	if axis < 0 || axis >= static.Rank() {
		exceptions.Panicf("facts.NewPulsed(%s): streaming axis %d out-of-range", static, axis)
	}
	if pulse <= 0 {
		exceptions.Panicf("facts.NewPulsed(%s): pulse must be > 0, got %d", static, pulse)
	}
	if delay < 0 {
		exceptions.Panicf("facts.NewPulsed(%s): delay must be >= 0, got %d", static, delay)
	}
	return Pulsed{
		shape: static.shape.WithDim(axis, pulse),
		stream: &StreamInfo{
			Axis:     axis,
			Dim:      static.shape.Dim(axis),
			AxisName: static.shape.AxisName(axis),
			Delay:    delay,
		},
	}
}

// Unstreamed creates a Pulsed fact for a value that doesn't depend on the stream.
func Unstreamed(static Static) Pulsed {
	return Pulsed{shape: static.shape.Clone()}
}

// HasStream returns whether the fact has a streaming axis.
func (f Pulsed) HasStream() bool { return f.stream != nil }

// Stream returns a copy of the stream information, and whether there is one.
func (f Pulsed) Stream() (StreamInfo, bool) {
	if f.stream == nil {
		return StreamInfo{}, false
	}
	return *f.stream, true
}

// Axis returns the streaming axis, or -1 if there is no stream.
func (f Pulsed) Axis() int {
	if f.stream == nil {
		return -1
	}
	return f.stream.Axis
}

// Delay returns the accumulated delay, 0 if there is no stream.
func (f Pulsed) Delay() int {
	if f.stream == nil {
		return 0
	}
	return f.stream.Delay
}

// Pulse returns the runtime extent of the streaming axis, or 0 if there is no stream.
func (f Pulsed) Pulse() int {
	if f.stream == nil {
		return 0
	}
	return f.shape.Dim(f.stream.Axis)
}

// Shape returns the runtime shape of the value: the streaming axis holds the pulse size.
func (f Pulsed) Shape() shapes.Shape { return f.shape.Clone() }

// DType of the value.
func (f Pulsed) DType() dtypes.DType { return f.shape.DType }

// Rank of the value.
func (f Pulsed) Rank() int { return f.shape.Rank() }

// WithDelay returns a copy of the fact with a different delay. It panics if there is no stream.
func (f Pulsed) WithDelay(delay int) Pulsed {
	if f.stream == nil {
		exceptions.Panicf("Pulsed.WithDelay(%d) on fact %s without stream", delay, f)
	}
	if delay < 0 {
		exceptions.Panicf("Pulsed.WithDelay(%d): delay must be >= 0", delay)
	}
	stream := *f.stream
	stream.Delay = delay
	return Pulsed{shape: f.shape.Clone(), stream: &stream}
}

// WithShape returns a copy of the fact with a new runtime shape, keeping the stream information.
// The streaming axis must still exist in the new shape.
func (f Pulsed) WithShape(shape shapes.Shape) Pulsed {
	if f.stream != nil && f.stream.Axis >= shape.Rank() {
		exceptions.Panicf("Pulsed.WithShape(%s): streaming axis %d doesn't exist", shape, f.stream.Axis)
	}
	f2 := Pulsed{shape: shape.Clone()}
	if f.stream != nil {
		stream := *f.stream
		f2.stream = &stream
	}
	return f2
}

// WithAxis returns a copy of the fact streaming on a different axis. It is used by operators that move
// axes around (e.g. inserting a new axis before the streaming one).
func (f Pulsed) WithAxis(axis int) Pulsed {
	if f.stream == nil {
		exceptions.Panicf("Pulsed.WithAxis(%d) on fact %s without stream", axis, f)
	}
	if axis < 0 || axis >= f.Rank() {
		exceptions.Panicf("Pulsed.WithAxis(%d): out-of-range for %s", axis, f)
	}
	stream := *f.stream
	stream.Axis = axis
	return Pulsed{shape: f.shape.Clone(), stream: &stream}
}

// WithPulse returns a copy of the fact with a different runtime extent of the streaming axis.
func (f Pulsed) WithPulse(pulse int) Pulsed {
	if f.stream == nil {
		exceptions.Panicf("Pulsed.WithPulse(%d) on fact %s without stream", pulse, f)
	}
	if pulse <= 0 {
		exceptions.Panicf("Pulsed.WithPulse(%d): pulse must be > 0", pulse)
	}
	f2 := f.WithShape(f.shape.WithDim(f.stream.Axis, pulse))
	return f2
}

// IntoStatic returns the runtime shape as a Static fact: the streaming axis holds the pulse size.
// The delay is dropped, it is up to the caller to surface it.
func (f Pulsed) IntoStatic() Static {
	return Static{shape: f.shape.Clone()}
}

// LogicalShape returns the shape of the whole stream: the streaming axis holds its logical extent.
func (f Pulsed) LogicalShape() shapes.Shape {
	if f.stream == nil {
		return f.shape.Clone()
	}
	if f.stream.AxisName != "" {
		return f.shape.WithNamedDim(f.stream.Axis, f.stream.AxisName)
	}
	if f.stream.Dim == shapes.DimDynamic {
		s := f.shape.Clone()
		s.Dimensions[f.stream.Axis] = shapes.DimDynamic
		return s
	}
	return f.shape.WithDim(f.stream.Axis, f.stream.Dim)
}

// Equal is structural equality: shapes and stream information.
func (f Pulsed) Equal(other Pulsed) bool {
	if !f.shape.Equal(other.shape) {
		return false
	}
	if (f.stream == nil) != (other.stream == nil) {
		return false
	}
	return f.stream == nil || *f.stream == *other.stream
}

// String implements fmt.Stringer.
func (f Pulsed) String() string {
	if f.stream == nil {
		return f.shape.String()
	}
	return fmt.Sprintf("%s{axis=%d, delay=%d}", f.shape, f.stream.Axis, f.stream.Delay)
}
