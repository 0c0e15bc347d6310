// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package facts

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pulse/pkg/core/shapes"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	f := MakeStatic(dtypes.Float32, 1, 10)
	require.Equal(t, dtypes.Float32, f.DType())
	require.Equal(t, 2, f.Rank())
	require.Equal(t, "(Float32)[1 10]", f.String())
	require.True(t, f.Equal(NewStatic(shapes.Make(dtypes.Float32, 1, 10))))
	require.False(t, f.Equal(MakeStatic(dtypes.Float32, 10, 1)))
	require.False(t, f.Equal(MakeStatic(dtypes.Int32, 1, 10)))

	// Modifying the returned shape doesn't change the fact.
	s := f.Shape()
	s.Dimensions[0] = 7
	require.Equal(t, 1, f.Shape().Dim(0))

	require.Panics(t, func() { _ = NewStatic(shapes.Shape{}) })
}

func TestPulsed(t *testing.T) {
	static := MakeStatic(dtypes.Float32, "S", 10)
	p := NewPulsed(static, 0, 4, 0)
	require.True(t, p.HasStream())
	require.Equal(t, 0, p.Axis())
	require.Equal(t, 4, p.Pulse())
	require.Equal(t, 0, p.Delay())
	require.Equal(t, "(Float32)[4 10]{axis=0, delay=0}", p.String())

	stream, ok := p.Stream()
	require.True(t, ok)
	require.Equal(t, shapes.DimDynamic, stream.Dim)
	require.Equal(t, "S", stream.AxisName)
	require.True(t, p.LogicalShape().Equal(static.Shape()))

	p2 := p.WithDelay(3)
	require.Equal(t, 3, p2.Delay())
	require.Equal(t, 0, p.Delay(), "WithDelay must not mutate")
	require.False(t, p.Equal(p2))
	require.True(t, p.Equal(NewPulsed(static, 0, 4, 0)))

	require.True(t, p2.IntoStatic().Equal(MakeStatic(dtypes.Float32, 4, 10)))
	require.Equal(t, 6, p2.WithPulse(6).Pulse())
	require.Equal(t, 3, p2.WithPulse(6).Delay())

	require.Panics(t, func() { _ = NewPulsed(static, 2, 1, 0) })
	require.Panics(t, func() { _ = NewPulsed(static, 0, 0, 0) })
	require.Panics(t, func() { _ = NewPulsed(static, 0, 1, -1) })
	require.Panics(t, func() { _ = p.WithDelay(-1) })
}

func TestPulsedConcreteAxis(t *testing.T) {
	p := NewPulsed(MakeStatic(dtypes.Float32, 1, 10), 0, 1, 0)
	require.Equal(t, "(Float32)[1 10]{axis=0, delay=0}", p.String())
	require.True(t, p.IntoStatic().Equal(MakeStatic(dtypes.Float32, 1, 10)))
	require.True(t, p.LogicalShape().Equal(shapes.Make(dtypes.Float32, 1, 10)))
}

func TestUnstreamed(t *testing.T) {
	u := Unstreamed(MakeStatic(dtypes.Int64, 3))
	require.False(t, u.HasStream())
	require.Equal(t, -1, u.Axis())
	require.Equal(t, 0, u.Delay())
	require.Equal(t, 0, u.Pulse())
	_, ok := u.Stream()
	require.False(t, ok)
	require.Panics(t, func() { _ = u.WithDelay(1) })
	require.False(t, u.Equal(NewPulsed(MakeStatic(dtypes.Int64, 3), 0, 3, 0)))
}

func TestPulsedWithAxis(t *testing.T) {
	p := NewPulsed(MakeStatic(dtypes.Float32, "S", 10), 0, 2, 1)
	moved := p.WithShape(p.Shape().InsertAxis(0, 5)).WithAxis(1)
	require.Equal(t, 1, moved.Axis())
	require.Equal(t, 2, moved.Pulse())
	require.Equal(t, 1, moved.Delay())
	require.Panics(t, func() { _ = p.WithAxis(5) })
}
