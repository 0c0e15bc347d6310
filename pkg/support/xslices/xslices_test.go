// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"flag"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMax(t *testing.T) {
	assert.Equal(t, 7, Max([]int{3, 7, 0, 2}))
	assert.Equal(t, 0, Max([]int(nil)))
	assert.Equal(t, "pulse", Max([]string{"axis", "pulse", "delay"}))
}

func TestKeys(t *testing.T) {
	m := map[string]int{"delay": 3, "axis": 1, "overlap": 0}
	assert.Len(t, Keys(m), 3)
	assert.Equal(t, []string{"axis", "delay", "overlap"}, SortedKeys(m))
	assert.Equal(t, []string{"1", "2"}, Map([]int{1, 2}, strconv.Itoa))
}

func TestFlag(t *testing.T) {
	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	values := Flag(flagSet, "delays", []int{1}, "delays", strconv.Atoi)
	assert.Equal(t, []int{1}, *values)
	require.NoError(t, flagSet.Parse([]string{"-delays=3, 5,8"}))
	assert.Equal(t, []int{3, 5, 8}, *values)
	assert.Equal(t, "3,5,8", flagSet.Lookup("delays").Value.String())

	require.Error(t, flagSet.Set("delays", "3,x"))
	assert.Equal(t, []int{3, 5, 8}, *values, "failed parsing keeps previous value")
	require.NoError(t, flagSet.Set("delays", ""))
	assert.Empty(t, *values)
}
