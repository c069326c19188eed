// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu    sync.Mutex
	texts []string
	done  int
}

func (r *recordingReporter) ReportFraction(_, _ int, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *recordingReporter) ReportDone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
}

func (r *recordingReporter) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...), r.done
}

// stepClock advances a fake wall clock by a fixed step on every read.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func TestTracker_DebouncesIntermediateReports(t *testing.T) {
	rep := &recordingReporter{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	elapsed := time.Duration(0)
	trk := newTracker(100, rep, func() time.Time { return base.Add(elapsed) })

	trk.push(true)
	// 50 events land within a single debounce window.
	elapsed = 10 * time.Millisecond
	for i := 0; i < 50; i++ {
		trk.observe(ProgressEvent{Kind: EventRecord})
	}
	texts, _ := rep.snapshot()
	require.Len(t, texts, 1, "events inside the debounce window must not repaint")
	assert.Contains(t, texts[0], "0/100")

	// Past the window the next event repaints.
	elapsed = 400 * time.Millisecond
	trk.observe(ProgressEvent{Kind: EventRecord})
	texts, _ = rep.snapshot()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[1], "51/100")
}

func TestTracker_FinishForcesFinalReport(t *testing.T) {
	rep := &recordingReporter{}
	clk := &stepClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), step: time.Millisecond}
	trk := newTracker(2, rep, clk.now)

	trk.observe(ProgressEvent{Kind: EventRecord})
	trk.observe(ProgressEvent{Kind: EventRecord})
	trk.finish()

	texts, done := rep.snapshot()
	assert.Equal(t, 1, done)
	require.NotEmpty(t, texts)
	last := texts[len(texts)-1]
	assert.Contains(t, last, "100%")
	assert.Contains(t, last, "2/2")
}

func TestTracker_SmoothedETAShrinksWithProgress(t *testing.T) {
	rep := &recordingReporter{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	elapsed := time.Duration(0)
	trk := newTracker(10, rep, func() time.Time { return base.Add(elapsed) })

	// One item per second, steady state.
	for i := 1; i <= 5; i++ {
		elapsed = time.Duration(i) * time.Second
		trk.observe(ProgressEvent{Kind: EventRecord})
	}
	require.True(t, trk.haveEMA)
	assert.InDelta(t, 1.0, trk.emaSecPerItem, 0.01, "steady pace converges to the per-item cost")
	assert.InDelta(t, 5.0, trk.remaining().Seconds(), 0.1)

	texts, _ := rep.snapshot()
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[len(texts)-1], "ETA")
}

func TestTracker_ETABlendsPaceChanges(t *testing.T) {
	rep := &recordingReporter{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	elapsed := time.Duration(0)
	trk := newTracker(4, rep, func() time.Time { return base.Add(elapsed) })

	elapsed = 2 * time.Second
	trk.observe(ProgressEvent{Kind: EventRecord}) // 2 s/item seeds the average
	first := trk.emaSecPerItem
	assert.InDelta(t, 2.0, first, 0.01)

	elapsed = 2*time.Second + 100*time.Millisecond
	trk.observe(ProgressEvent{Kind: EventRecord}) // overall pace drops to 1.05 s/item
	assert.Less(t, trk.emaSecPerItem, first, "faster progress must pull the estimate down")
	assert.Greater(t, trk.emaSecPerItem, 1.05, "one fast sample must not dominate the estimate")
}

func TestTracker_HoldingsEventsCountSeparately(t *testing.T) {
	rep := &recordingReporter{}
	clk := &stepClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), step: time.Second}
	trk := newTracker(3, rep, clk.now)

	trk.observe(ProgressEvent{Kind: EventRecord})
	trk.observe(ProgressEvent{Kind: EventHoldings})
	trk.observe(ProgressEvent{Kind: EventRecord})

	assert.Equal(t, 2, trk.completedRecords)
	assert.Equal(t, 1, trk.completedHoldings)
}

func TestTracker_ReporterPanicRecovered(t *testing.T) {
	clk := &stepClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), step: time.Second}
	trk := newTracker(1, panicReporter{}, clk.now)

	assert.NotPanics(t, func() {
		trk.observe(ProgressEvent{Kind: EventRecord})
		trk.finish()
	})
	assert.Equal(t, 1, trk.completedRecords)
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-time.Second, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61 * time.Second, "00:01:01"},
		{3 * time.Hour, "03:00:00"},
		{90*time.Minute + 5*time.Second, "01:30:05"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatETA(tt.d), "formatETA(%v)", tt.d)
	}
}
