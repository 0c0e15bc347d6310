// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/pulse/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/prometheus/client_golang/prometheus"
)

// streamingOf describes how a configuration selects the streaming axis.
func streamingOf(r *result) string {
	if r.Config.Symbol != "" {
		return fmt.Sprintf("symbol %q", r.Config.Symbol)
	}
	return fmt.Sprintf("axis %d", r.Config.Axis)
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "?"
	}
	return humanize.Bytes(uint64(info.Size()))
}

// Summary reports one row per model and pulse size. Rows of models whose outputs are delayed are
// highlighted.
func Summary(w io.Writer, results []*result) {
	fmt.Fprintln(w, titleStyle.Render("Summary"))
	table := newTable([]string{"Model", "Size", "Pulse", "Streaming", "# Nodes", "# Pulsed Nodes", "Output Delays"},
		lipgloss.Left, lipgloss.Right, lipgloss.Right, lipgloss.Left, lipgloss.Right, lipgloss.Right, lipgloss.Left)
	for _, r := range results {
		delays := xslices.Map(r.Delays, func(delay int64) string { return humanize.Comma(delay) })
		table.Row(xslices.Max(r.Delays) > 0,
			r.Path,
			fileSize(r.Path),
			humanize.Comma(int64(r.Config.Pulse)),
			streamingOf(r),
			humanize.Comma(int64(r.Source.NumNodes())),
			humanize.Comma(int64(r.Pulsed.NumNodes())),
			strings.Join(delays, ", "))
	}
	fmt.Fprintln(w, table.Table.Render())
}

// Nodes lists the nodes of each pulsed model, in evaluation order. Nodes adding delay are highlighted.
func Nodes(w io.Writer, results []*result) {
	for _, r := range results {
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s (pulse %d)", r.Path, r.Config.Pulse)))
		table := newTable([]string{"Node", "Op", "Shape", "Axis", "Delay"},
			lipgloss.Left, lipgloss.Left, lipgloss.Left, lipgloss.Right)
		order := must.M1(r.Pulsed.EvalOrder())
		for _, id := range order {
			node := r.Pulsed.Node(id)
			for slot, fact := range node.OutputFacts() {
				name := node.Name()
				if slot > 0 {
					name = fmt.Sprintf("%s:%d", name, slot)
				}
				axis, delay := "-", "-"
				if fact.HasStream() {
					axis = strconv.Itoa(fact.Axis())
					delay = humanize.Comma(int64(fact.Delay()))
				}
				var inputDelay int
				for _, input := range node.Inputs() {
					inputDelay = max(inputDelay, must.M1(r.Pulsed.OutletFact(input)).Delay())
				}
				table.Row(fact.Delay() > inputDelay, name, node.Op().Name(), fact.Shape().String(), axis, delay)
			}
		}
		fmt.Fprintln(w, table.Table.Render())
	}
}

// Metrics reports the counters collected in reg, one row per metric and operator kind.
func Metrics(w io.Writer, reg *prometheus.Registry) {
	fmt.Fprintln(w, titleStyle.Render("Metrics"))
	table := newTable([]string{"Metric", "Kind", "Count"}, lipgloss.Left, lipgloss.Left, lipgloss.Right)
	var rows [][]string
	for _, family := range must.M1(reg.Gather()) {
		for _, metric := range family.GetMetric() {
			if metric.GetCounter() == nil {
				continue
			}
			var kind string
			for _, label := range metric.GetLabel() {
				if label.GetName() == "kind" {
					kind = label.GetValue()
				}
			}
			rows = append(rows, []string{family.GetName(), kind,
				humanize.Comma(int64(metric.GetCounter().GetValue()))})
		}
	}
	slices.SortFunc(rows, func(a, b []string) int {
		if c := strings.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return strings.Compare(a[1], b[1])
	})
	for _, row := range rows {
		table.Row(strings.HasPrefix(row[0], "pulse_translation_failures"), row...)
	}
	fmt.Fprintln(w, table.Table.Render())
}
