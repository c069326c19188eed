// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit enforces a global minimum interval between outbound
// API calls. A single Pacer is shared by every worker and every call
// kind, so the configured ceiling holds process-wide regardless of how
// many goroutines compete.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Pacer spaces call admissions so that no two calls start closer
// together than the configured interval. There is no burst allowance:
// the cadence is strictly periodic.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration

	// next is the earliest instant at which the next call may start.
	next time.Time

	// now and sleep are indirected so tests can run without real waits.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer returns a Pacer enforcing at most perSecond call admissions
// per second across all callers.
func NewPacer(perSecond float64) (*Pacer, error) {
	if perSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be > 0, got %g", perSecond)
	}
	return &Pacer{
		interval: time.Duration(float64(time.Second) / perSecond),
		now:      time.Now,
		sleep:    sleepCtx,
	}, nil
}

// Interval returns the enforced minimum spacing between call admissions.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Acquire blocks until the caller may issue one outbound call, having
// reserved the next slot on the global cadence. The slot is claimed
// under the lock, so concurrent callers are serialized in lock
// acquisition order; the wait itself happens outside the lock.
//
// If ctx is cancelled during the wait, Acquire returns ctx.Err(). The
// reserved slot is not returned to the schedule; a burst after
// cancellation could otherwise break the cadence guarantee.
func (p *Pacer) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	now := p.now()
	if p.next.Before(now) {
		p.next = now
	}
	slot := p.next
	p.next = p.next.Add(p.interval)
	p.mu.Unlock()

	if wait := slot.Sub(now); wait > 0 {
		return p.sleep(ctx, wait)
	}
	return nil
}

// sleepCtx waits d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
