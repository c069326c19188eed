// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// EventKind distinguishes the two independently-progressing sub-steps
// of a work unit.
type EventKind string

const (
	// EventRecord marks a record fetched or skipped as already present.
	EventRecord EventKind = "record"

	// EventHoldings marks a holdings snapshot fetched or skipped.
	EventHoldings EventKind = "holdings"
)

// ProgressEvent is the transient message a work unit emits when a
// sub-step completes. Only counts matter; ordering across identifiers
// is irrelevant.
type ProgressEvent struct {
	Kind EventKind
	OCN  string
}

// Reporter is the progress surface handed in by the caller. The batch
// engine functions correctly when both methods are no-ops, and a
// panicking reporter never affects a run's outcome.
type Reporter interface {
	// ReportFraction receives completed-record count, total, and a
	// preformatted status line.
	ReportFraction(done, total int, text string)

	// ReportDone signals batch completion.
	ReportDone()
}

// NopReporter discards all progress.
type NopReporter struct{}

func (NopReporter) ReportFraction(int, int, string) {}
func (NopReporter) ReportDone()                     {}

// Smoothing and debounce constants for the progress display.
const (
	// emaTau is the exponential-moving-average smoothing factor applied
	// to seconds-per-completed-record.
	emaTau = 0.2

	// minReportInterval debounces reporter updates to roughly 4/second.
	minReportInterval = 250 * time.Millisecond
)

// tracker aggregates progress events into the two batch counters and a
// smoothed time-remaining estimate. It runs in a single goroutine
// draining the event channel, so no counter is touched concurrently.
type tracker struct {
	total    int
	reporter Reporter

	completedRecords  int
	completedHoldings int

	startedAt     time.Time
	emaSecPerItem float64
	haveEMA       bool

	lastReport time.Time
	now        func() time.Time
}

func newTracker(total int, reporter Reporter, now func() time.Time) *tracker {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &tracker{
		total:     total,
		reporter:  reporter,
		startedAt: now(),
		now:       now,
	}
}

// run drains events until the channel closes, then closes done. The
// final flush stays with the caller, which knows whether the batch
// completed or was cancelled.
func (t *tracker) run(events <-chan ProgressEvent, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		t.observe(ev)
	}
}

// observe advances the counter for one completed sub-step.
func (t *tracker) observe(ev ProgressEvent) {
	switch ev.Kind {
	case EventRecord:
		t.completedRecords++
		t.updateEMA()
		t.push(false)
	case EventHoldings:
		t.completedHoldings++
		t.push(false)
	}
}

// updateEMA folds the current overall seconds-per-record into the
// running estimate.
func (t *tracker) updateEMA() {
	elapsed := t.now().Sub(t.startedAt).Seconds()
	curr := elapsed / float64(t.completedRecords)
	if !t.haveEMA {
		t.emaSecPerItem = curr
		t.haveEMA = true
		return
	}
	t.emaSecPerItem = (1-emaTau)*t.emaSecPerItem + emaTau*curr
}

// remaining estimates seconds until completion from the smoothed rate.
func (t *tracker) remaining() time.Duration {
	if !t.haveEMA {
		return 0
	}
	left := t.total - t.completedRecords
	if left < 0 {
		left = 0
	}
	return time.Duration(t.emaSecPerItem * float64(left) * float64(time.Second))
}

// push forwards progress to the reporter, debounced unless forced.
// Always flushed at start (first call) and at completion.
func (t *tracker) push(force bool) {
	now := t.now()
	if !force && now.Sub(t.lastReport) < minReportInterval {
		return
	}
	t.lastReport = now

	var text string
	if t.completedRecords == 0 {
		text = fmt.Sprintf("Starting… 0/%d", t.total)
	} else {
		pct := 100 * t.completedRecords / max(1, t.total)
		text = fmt.Sprintf("%d%% • %d/%d • ETA %s",
			pct, t.completedRecords, t.total, formatETA(t.remaining()))
	}
	t.safeReportFraction(t.completedRecords, t.total, text)
}

// finish emits the final forced update and the done signal.
func (t *tracker) finish() {
	t.push(true)
	t.safeReportDone()
}

// safeReportFraction shields the batch from reporter panics. Reporting
// is fire-and-forget: a broken progress surface must never change a
// unit's or the batch's result.
func (t *tracker) safeReportFraction(done, total int, text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("progress reporter panicked")
		}
	}()
	t.reporter.ReportFraction(done, total, text)
}

func (t *tracker) safeReportDone() {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("progress reporter panicked")
		}
	}()
	t.reporter.ReportDone()
}

// formatETA renders a duration as hh:mm:ss, clamped at zero.
func formatETA(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 0 {
		secs = 0
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
