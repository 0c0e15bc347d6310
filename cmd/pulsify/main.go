// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// pulsify reads models in the interchange format, translates them into pulsed (streaming) models and
// reports the streaming facts and output delays.
//
// Usage:
//
//	pulsify -symbol=S -pulse=1,8 model.yaml [more_models.yaml...]
//
// With -output, the pulsed model is translated back to a typed model, carrying the output delays in
// its "pulse.delay" property, and written in the interchange format.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/pulse/pkg/core/interchange"
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/gomlx/pulse/pkg/opl"
	"github.com/gomlx/pulse/pkg/pulse"
	"github.com/gomlx/pulse/pkg/support/fsutil"
	"github.com/gomlx/pulse/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var (
	flagConfig = flag.String("config", "", "YAML file with the pulse configuration (pulse, axis and symbol). "+
		"The flags -pulse, -axis and -symbol take precedence over it.")
	flagPulses = xslices.Flag(nil, "pulse", nil, "Comma-separated list of pulse sizes. "+
		"Models are pulsified once per pulse size.", strconv.Atoi)
	flagAxis     = flag.Int("axis", -1, "Streaming axis of the model inputs, used if no symbol is given. -1 keeps the configured value.")
	flagSymbol   = flag.String("symbol", "", "Name of the symbolic dimension to stream.")
	flagOutput   = flag.String("output", "", "Translates the pulsed model back to a typed model and writes it to this file. Requires a single model and pulse size.")
	flagForce    = flag.Bool("force", false, "Overwrite the -output file if it exists.")
	flagNodes    = flag.Bool("nodes", false, "Lists the nodes of the pulsed models with their streaming facts.")
	flagMetrics  = flag.Bool("metrics", false, "Reports how many nodes of each operator kind were pulsified.")
	flagNoColor  = flag.Bool("no_color", false, "Disables colors in the report.")
	flagProgress = flag.Bool("progress", false, "Displays a progress bar while pulsifying.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		klog.Errorf("Missing model file to pulsify. See 'pulsify -help'")
		os.Exit(1)
	}
	if *flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	} else {
		lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())
	}

	configs := must.M1(resolveConfigs(*flagConfig, *flagPulses, *flagAxis, *flagSymbol))
	if *flagOutput != "" && (len(paths) > 1 || len(configs) > 1) {
		klog.Errorf("-output requires a single model and pulse size, got %d models and %d pulse sizes", len(paths), len(configs))
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	var bar *progressbar.ProgressBar
	if *flagProgress {
		bar = progressbar.NewOptions(len(paths)*len(configs),
			progressbar.OptionSetDescription("pulsifying"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish())
	}
	results, err := pulsifyAll(context.Background(), paths, configs, pulse.NewMetrics(reg), bar)
	if err != nil {
		klog.Errorf("Failed to pulsify: %+v", err)
		os.Exit(1)
	}

	Summary(os.Stdout, results)
	if *flagNodes {
		Nodes(os.Stdout, results)
	}
	if *flagMetrics {
		Metrics(os.Stdout, reg)
	}
	if *flagOutput != "" {
		must.M(writeOutput(*flagOutput, *flagForce, results[0]))
		fmt.Printf("Wrote %s\n", *flagOutput)
	}
}

// newFramework returns the interchange framework with all the operators pulsify knows about.
func newFramework() *interchange.Framework {
	return opl.WithOnnx(interchange.New(pulse.Registry()))
}

// resolveConfigs returns one configuration per pulse size: configPath (if given) is read first, and
// then overridden by the non-default flag values.
func resolveConfigs(configPath string, pulses []int, axis int, symbol string) ([]pulse.Config, error) {
	base := pulse.Config{Pulse: 1}
	if configPath != "" {
		var err error
		base, err = pulse.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
	}
	if axis >= 0 {
		base.Axis = axis
	}
	if symbol != "" {
		base.Symbol = symbol
	}
	if len(pulses) == 0 {
		pulses = []int{base.Pulse}
	}
	configs := make([]pulse.Config, 0, len(pulses))
	for _, size := range pulses {
		config := base
		config.Pulse = size
		if err := config.Validate(); err != nil {
			return nil, err
		}
		configs = append(configs, config)
	}
	return configs, nil
}

// result of pulsifying one model with one configuration.
type result struct {
	Path   string
	Config pulse.Config
	Source *ops.TypedModel
	Pulsed *pulse.PulsedModel
	Delays []int64
}

// pulsifyAll reads the models and pulsifies all of them, concurrently, for each configuration.
// If bar is not nil, it advances by one per pulsified model.
func pulsifyAll(ctx context.Context, paths []string, configs []pulse.Config, metrics *pulse.Metrics,
	bar *progressbar.ProgressBar) ([]*result, error) {
	framework := newFramework()
	sources := make([]*ops.TypedModel, len(paths))
	for ii, path := range paths {
		path, err := fsutil.ReplaceTildeInDir(path)
		if err != nil {
			return nil, err
		}
		sources[ii], err = framework.ReadFile(path)
		if err != nil {
			return nil, err
		}
		klog.V(1).Infof("read %q: %d nodes", path, sources[ii].NumNodes())
	}

	table := pulse.DefaultTable(opl.RegisterPulsifiers)
	var results []*result
	for _, config := range configs {
		p := &pulse.Pulsifier{Table: table, Config: config, Metrics: metrics}
		models, err := p.NewModels(ctx, sources...)
		if err != nil {
			return nil, errors.WithMessagef(err, "pulse %d", config.Pulse)
		}
		if bar != nil {
			_ = bar.Add(len(models))
		}
		for ii, model := range models {
			delays, err := pulse.Delays(model)
			if err != nil {
				return nil, err
			}
			results = append(results, &result{
				Path:   paths[ii],
				Config: config,
				Source: sources[ii],
				Pulsed: model,
				Delays: delays,
			})
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return results, nil
}

// writeOutput translates the pulsed model back to a typed model and writes it to path.
func writeOutput(path string, overwrite bool, r *result) error {
	typed, err := pulse.IntoTyped(r.Pulsed)
	if err != nil {
		return err
	}
	doc, err := newFramework().Dump(typed)
	if err != nil {
		return err
	}
	data, err := interchange.Marshal(doc)
	if err != nil {
		return err
	}
	f, err := fsutil.CreateOutput(path, overwrite)
	if err != nil {
		return err
	}
	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "writing %q", path)
	}
	return errors.Wrapf(f.Close(), "closing %q", path)
}
