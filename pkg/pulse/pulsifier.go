// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package pulse translates typed (whole-tensor) models into pulsed (streaming) models and back.
//
// A pulsed model processes its input in fixed windows (pulses) along one streaming axis. Each operator
// kind that can appear in a streamed model registers a PulsifyFn in a Table, and the Pulsifier
// dispatches every node of the typed model to the function registered for its kind: a kind without an
// entry is an error (ErrNoPulsifierForOperator), never an implicit pass-through.
//
// Operators buffering stream positions add to the delay of the values downstream. IntoTyped translates
// a pulsed model back into a typed one and records the delay of each output in the PropertyDelay
// ("pulse.delay") property.
//
// Example:
//
//	table := pulse.DefaultTable(opl.RegisterPulsifiers)
//	pulsed, err := pulse.NewModel(typed, pulse.Config{Pulse: 1, Axis: 0}, table)
//	...
//	typedAgain, err := pulse.IntoTyped(pulsed)
//	delays, _ := typedAgain.Property(pulse.PropertyDelay)
package pulse

import (
	"context"

	"github.com/gomlx/pulse/pkg/core/facts"
	"github.com/gomlx/pulse/pkg/core/graph"
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/gomlx/pulse/pkg/core/translator"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Pulsifier translates typed models into pulsed models, dispatching each node to its Table entry.
type Pulsifier struct {
	Table   *Table
	Config  Config
	Metrics *Metrics
}

var _ translator.Translator[facts.Static, ops.Op, facts.Pulsed, PulsedOp] = (*Pulsifier)(nil)

// TranslateNode implements translator.Translator.
func (p *Pulsifier) TranslateNode(source *ops.TypedModel, node *ops.TypedNode, target *PulsedModel,
	mapping translator.Mapping) ([]graph.Outlet, error) {
	kind := node.Op().Kind()
	fn, found := p.Table.Lookup(kind)
	if !found {
		p.Metrics.failed(kind)
		return nil, errors.Wrapf(ErrNoPulsifierForOperator, "node %q (kind %s)", node.Name(), kind)
	}
	ctx := &Context{Source: source, Target: target, Mapping: mapping, Config: p.Config}
	outlets, err := fn(ctx, node)
	if err != nil {
		p.Metrics.failed(kind)
		return nil, err
	}
	p.Metrics.translated(kind)
	return outlets, nil
}

// Pulsify translates source into a new pulsed model, and returns it along with the mapping of the
// source outlets to the pulsed ones.
func (p *Pulsifier) Pulsify(source *ops.TypedModel) (*PulsedModel, translator.Mapping, error) {
	if p.Table == nil {
		return nil, nil, errors.New("Pulsifier has no Table")
	}
	if !p.Table.Frozen() {
		return nil, nil, errors.New("Pulsifier Table must be frozen before use")
	}
	if err := p.Config.Validate(); err != nil {
		return nil, nil, err
	}
	target := NewPulsedModel()
	mapping, err := translator.TranslateModelWithMappings(p, source, target)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "pulsifying model")
	}
	delays, err := Delays(target)
	if err != nil {
		return nil, nil, err
	}
	p.Metrics.observeDelays(delays)
	klog.V(1).Infof("pulsified model with %d nodes into %d nodes, output delays %v",
		source.NumNodes(), target.NumNodes(), delays)
	return target, mapping, nil
}

// NewModel pulsifies source with the given configuration and table.
func NewModel(source *ops.TypedModel, config Config, table *Table) (*PulsedModel, error) {
	model, _, err := NewModelWithMapping(source, config, table)
	return model, err
}

// NewModelWithMapping pulsifies source and also returns the mapping of source outlets to pulsed outlets.
func NewModelWithMapping(source *ops.TypedModel, config Config, table *Table) (*PulsedModel, translator.Mapping, error) {
	p := &Pulsifier{Table: table, Config: config}
	return p.Pulsify(source)
}

// NewModels pulsifies independent models concurrently, each into its own pulsed model. It returns the
// first error, and stops starting new translations once one failed or ctx is done.
func (p *Pulsifier) NewModels(ctx context.Context, sources ...*ops.TypedModel) ([]*PulsedModel, error) {
	results := make([]*PulsedModel, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for ii, source := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			model, _, err := p.Pulsify(source)
			if err != nil {
				return errors.WithMessagef(err, "model #%d", ii)
			}
			results[ii] = model
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// NewModels pulsifies independent models concurrently, see Pulsifier.NewModels.
func NewModels(ctx context.Context, sources []*ops.TypedModel, config Config, table *Table) ([]*PulsedModel, error) {
	p := &Pulsifier{Table: table, Config: config}
	return p.NewModels(ctx, sources...)
}
