// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pulse

import (
	"github.com/gomlx/pulse/pkg/core/ops"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collected by a Pulsifier. A nil *Metrics collects nothing.
type Metrics struct {
	NodesTranslated *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	OutputDelay     prometheus.Histogram
}

// NewMetrics creates the pulsification metrics and registers them with reg. If reg is nil they are
// not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		NodesTranslated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_nodes_translated_total",
			Help: "Number of nodes pulsified, per operator kind.",
		}, []string{"kind"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_translation_failures_total",
			Help: "Number of nodes that failed to pulsify, per operator kind.",
		}, []string{"kind"}),
		OutputDelay: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pulse_output_delay",
			Help:    "Delay of the outputs of pulsified models, in stream positions.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

func (m *Metrics) translated(kind ops.Kind) {
	if m == nil {
		return
	}
	m.NodesTranslated.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) failed(kind ops.Kind) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) observeDelays(delays []int64) {
	if m == nil {
		return
	}
	for _, delay := range delays {
		m.OutputDelay.Observe(float64(delay))
	}
}
