// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch is the concurrent batch-fetch engine: it dispatches one
// work unit per identifier over a bounded worker pool, aggregates two
// independent progress counters, supports cooperative cancellation, and
// never duplicates work already persisted by a prior run.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/bibrecord-engine/internal/store"
	"github.com/pdiddy/bibrecord-engine/pkg/types"
)

const defaultWorkers = 10

// Fetcher is the remote side of a work unit. *wcapi.Client implements it.
type Fetcher interface {
	FetchRecord(ctx context.Context, ocn string) ([]byte, error)
	FetchHoldings(ctx context.Context, ocn string, symbols []string) (*types.HoldingsSnapshot, error)
}

// Runner owns one batch engine instance: the shared API client, the
// artifact store, and the institution symbols queried for holdings.
type Runner struct {
	fetcher  Fetcher
	store    *store.Store
	symbols  []string
	reporter Reporter
	logger   zerolog.Logger

	// now is indirected for deterministic progress tests.
	now func() time.Time
}

// Result is the aggregate outcome of one batch run.
type Result struct {
	RunID string

	// AllRecords and AllHoldings default true and flip false on the
	// first failure of the corresponding stage. AllHoldings is only
	// meaningful when the run requested holdings.
	AllRecords  bool
	AllHoldings bool

	// Errors holds one formatted line per failing identifier.
	Errors []string

	// Outcomes holds every dispatched unit's structured result.
	Outcomes []Outcome

	Total             int
	CompletedRecords  int
	CompletedHoldings int
	FetchHoldings     bool
	Cancelled         bool

	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRunner builds a batch runner. reporter may be nil.
func NewRunner(fetcher Fetcher, st *store.Store, symbols []string, reporter Reporter) (*Runner, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if st == nil {
		return nil, errors.New("store is required")
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	if len(symbols) == 0 {
		symbols = types.DefaultSymbols
	}
	return &Runner{
		fetcher:  fetcher,
		store:    st,
		symbols:  symbols,
		reporter: reporter,
		logger:   log.With().Str("component", "batch").Logger(),
		now:      time.Now,
	}, nil
}

// Normalize trims identifiers, drops blanks, and collapses duplicates
// to one unit of work each, preserving first-seen order.
func Normalize(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Run fetches records (and optionally holdings) for ids over a pool of
// workers. Cancellation through ctx is cooperative: not-yet-started
// units are discarded, in-flight units run to completion, and the
// partial result is returned.
func (r *Runner) Run(ctx context.Context, ids []string, fetchHoldings bool, workers int) Result {
	if workers <= 0 {
		workers = defaultWorkers
	}

	res := Result{
		RunID:         uuid.NewString(),
		AllRecords:    true,
		AllHoldings:   true,
		FetchHoldings: fetchHoldings,
		StartedAt:     r.now(),
	}

	ids = Normalize(ids)

	// Pre-filter: without holdings there is nothing left to do for an
	// identifier whose record artifact exists, so it leaves the batch
	// entirely. With holdings requested every identifier stays, because
	// holdings-only completion must still happen for fetched records.
	if !fetchHoldings {
		kept := ids[:0]
		for _, id := range ids {
			if !r.store.RecordExists(id) {
				kept = append(kept, id)
			}
		}
		ids = kept
	}

	res.Total = len(ids)
	r.logger.Info().
		Str("run_id", res.RunID).
		Int("total", res.Total).
		Bool("fetch_holdings", fetchHoldings).
		Int("workers", workers).
		Msg("batch started")

	trk := newTracker(res.Total, r.reporter, r.now)
	if res.Total == 0 {
		trk.finish()
		res.FinishedAt = r.now()
		return res
	}

	// Initial paint, before the aggregator goroutine owns the tracker.
	trk.push(true)

	// Sized so a unit's non-blocking send can never drop an event:
	// at most two events per identifier.
	events := make(chan ProgressEvent, 2*len(ids))
	trackerDone := make(chan struct{})
	go trk.run(events, trackerDone)

	emit := func(ev ProgressEvent) {
		select {
		case events <- ev:
		default:
		}
	}

	outcomes := make(chan Outcome, len(ids))

	// In-flight units finish on a detached context; cancellation means
	// "do not start", never "abort mid-flight".
	unitCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(workers)
	for _, id := range ids {
		if ctx.Err() != nil {
			res.Cancelled = true
			r.logger.Warn().Str("run_id", res.RunID).Msg("cancellation observed, discarding unstarted units")
			break
		}
		id := id
		g.Go(func() error {
			outcomes <- r.executeUnit(unitCtx, id, fetchHoldings, emit)
			return nil
		})
	}

	g.Wait()
	close(outcomes)
	close(events)
	<-trackerDone

	for out := range outcomes {
		res.Outcomes = append(res.Outcomes, out)
		if out.OK {
			continue
		}
		res.Errors = append(res.Errors, fmt.Sprintf("OCN %s: %s", out.OCN, out.Reason))
		switch out.Stage {
		case StageRecord:
			res.AllRecords = false
			if fetchHoldings {
				// Holdings never proceed on an unresolved record.
				res.AllHoldings = false
			}
		case StageHoldings:
			res.AllHoldings = false
		}
	}

	res.CompletedRecords = trk.completedRecords
	res.CompletedHoldings = trk.completedHoldings
	res.FinishedAt = r.now()
	trk.finish()

	r.logger.Info().
		Str("run_id", res.RunID).
		Int("completed_records", res.CompletedRecords).
		Int("completed_holdings", res.CompletedHoldings).
		Int("failed", len(res.Errors)).
		Bool("cancelled", res.Cancelled).
		Dur("elapsed", res.FinishedAt.Sub(res.StartedAt)).
		Msg("batch finished")

	return res
}

// Verify checks pre-export completeness for ids: every record artifact
// present, and every holdings artifact too when requireHoldings is set.
func (r *Runner) Verify(ids []string, requireHoldings bool) (bool, []string, []string) {
	return r.store.Missing(Normalize(ids), requireHoldings)
}
