// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func TestWriteSummary(t *testing.T) {
	dir := t.TempDir()
	res := Result{
		RunID:             "run-abc",
		AllRecords:        true,
		AllHoldings:       false,
		Errors:            []string{"OCN 42: record not found"},
		Total:             3,
		CompletedRecords:  3,
		CompletedHoldings: 2,
		FetchHoldings:     true,
		StartedAt:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt:        time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
	}

	path, err := WriteSummary(dir, res)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Summary
	require.NoError(t, yaml.Unmarshal(raw, &got))
	assert.Equal(t, "run-abc", got.RunID)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 2, got.CompletedHoldings)
	assert.True(t, got.AllRecords)
	assert.False(t, got.AllHoldings)
	assert.Equal(t, []string{"OCN 42: record not found"}, got.Errors)
}

func TestWriteSummary_NoErrorsOmitted(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteSummary(dir, Result{RunID: "clean", AllRecords: true, AllHoldings: true})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "errors:")
}
