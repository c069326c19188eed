// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenLedger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func sampleRun(id string, started time.Time) RunRecord {
	return RunRecord{
		ID:                id,
		StartedAt:         started,
		FinishedAt:        started.Add(time.Minute),
		Total:             5,
		CompletedRecords:  4,
		CompletedHoldings: 3,
		FetchHoldings:     true,
	}
}

func TestLedger_SaveAndLatestRun(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()

	first := sampleRun(uuid.NewString(), time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	second := sampleRun(uuid.NewString(), time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC))
	require.NoError(t, l.SaveRun(ctx, first, nil))
	require.NoError(t, l.SaveRun(ctx, second, nil))

	latest, err := l.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, second.StartedAt, latest.StartedAt)
	assert.True(t, latest.FetchHoldings)
	assert.False(t, latest.Cancelled)

	runs, err := l.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
}

func TestLedger_FailureGroupsAndDetail(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()

	run := sampleRun(uuid.NewString(), time.Now().UTC().Truncate(time.Second))
	outcomes := []OutcomeRecord{
		{OCN: "1", OK: true},
		{OCN: "2", OK: false, Reason: "record not found"},
		{OCN: "3", OK: false, Reason: "record not found"},
		{OCN: "4", OK: false, Reason: "network error"},
		{OCN: "5", OK: true},
	}
	require.NoError(t, l.SaveRun(ctx, run, outcomes))

	groups, err := l.FailureGroups(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, FailureGroup{Reason: "record not found", Count: 2}, groups[0])
	assert.Equal(t, FailureGroup{Reason: "network error", Count: 1}, groups[1])

	failures, err := l.Failures(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, failures, 3)
	assert.Equal(t, "2", failures[0].OCN)
	assert.Equal(t, "4", failures[2].OCN)
	assert.Equal(t, "network error", failures[2].Reason)
}

func TestLedger_EmptyRun(t *testing.T) {
	l := testLedger(t)
	ctx := context.Background()

	run := sampleRun(uuid.NewString(), time.Now().UTC().Truncate(time.Second))
	require.NoError(t, l.SaveRun(ctx, run, nil))

	groups, err := l.FailureGroups(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, groups)
}
