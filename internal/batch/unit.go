// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"context"
	"fmt"

	"github.com/pdiddy/bibrecord-engine/internal/wcapi"
)

// Stage names the sub-step where a unit failed.
type Stage string

const (
	StageRecord   Stage = "record"
	StageHoldings Stage = "holdings"
)

// Outcome is one identifier's result, consumed by the scheduler once
// the unit returns.
type Outcome struct {
	OCN    string
	OK     bool
	Stage  Stage
	Reason string
}

// executeUnit drives one identifier's full fetch-and-persist sequence:
// record first (skipped when the artifact already exists), then the
// optional holdings step. Holdings are attempted only once a record
// exists or existed already; a holdings failure never invalidates a
// record that was fetched successfully.
//
// emit is best-effort: it must not block and its delivery failures are
// invisible here.
func (r *Runner) executeUnit(ctx context.Context, ocn string, fetchHoldings bool, emit func(ProgressEvent)) Outcome {
	if r.store.RecordExists(ocn) {
		emit(ProgressEvent{Kind: EventRecord, OCN: ocn})
	} else {
		data, err := r.fetcher.FetchRecord(ctx, ocn)
		if err != nil {
			return failure(ocn, StageRecord, wcapi.Reason(err))
		}
		if err := r.store.SaveRecord(ocn, data); err != nil {
			return failure(ocn, StageRecord, fmt.Sprintf("saving record: %v", err))
		}
		emit(ProgressEvent{Kind: EventRecord, OCN: ocn})
	}

	if !fetchHoldings {
		return Outcome{OCN: ocn, OK: true}
	}

	if r.store.HoldingsExist(ocn) {
		emit(ProgressEvent{Kind: EventHoldings, OCN: ocn})
		return Outcome{OCN: ocn, OK: true}
	}

	snap, err := r.fetcher.FetchHoldings(ctx, ocn, r.symbols)
	if err != nil {
		return failure(ocn, StageHoldings, wcapi.Reason(err))
	}
	if err := r.store.SaveHoldings(snap); err != nil {
		return failure(ocn, StageHoldings, fmt.Sprintf("saving holdings: %v", err))
	}
	emit(ProgressEvent{Kind: EventHoldings, OCN: ocn})

	return Outcome{OCN: ocn, OK: true}
}

func failure(ocn string, stage Stage, reason string) Outcome {
	return Outcome{OCN: ocn, Stage: stage, Reason: reason}
}
