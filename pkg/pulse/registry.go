// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pulse

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/gomlx/pulse/pkg/core/registry"
)

const (
	// RegistryNamespace is the namespace of the streaming operators in the interchange format.
	RegistryNamespace = "tract_pulse"

	// NameDelay is the interchange name of Delay.
	NameDelay = "tract_pulse_delay"
)

// Registry creates the registry of the streaming operators, so typed models translated back from
// pulsed ones can be serialized.
func Registry() *registry.Registry {
	r := registry.New(RegistryNamespace)
	r.RegisterDumper(KindDelay, func(_ *ops.TypedModel, node *ops.TypedNode) (*registry.Invocation, error) {
		op := node.Op().(*Delay)
		return &registry.Invocation{
			Op:   NameDelay,
			Args: map[string]any{"axis": op.Axis, "delay": op.Delay, "overlap": op.Overlap},
		}, nil
	})
	r.RegisterPrimitive(NameDelay,
		[]registry.Parameter{
			registry.Int("axis"),
			registry.Int("delay"),
			registry.Int("overlap").WithDefault(0),
		},
		func(b *registry.Builder, args registry.Arguments) ([]graph.Outlet, error) {
			op := &Delay{Axis: args.Int("axis"), Delay: args.Int("delay"), Overlap: args.Int("overlap")}
			return b.Wire(op, b.Inputs()...)
		})
	r.Pair(KindDelay, NameDelay)
	if err := r.Check(); err != nil {
		exceptions.Panicf("pulse.Registry: %v", err)
	}
	return r
}
