// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPacer_RejectsNonPositiveRate(t *testing.T) {
	for _, rate := range []float64{0, -1} {
		_, err := NewPacer(rate)
		assert.Error(t, err, "rate %g", rate)
	}
}

func TestPacer_Interval(t *testing.T) {
	p, err := NewPacer(2.0)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, p.Interval())
}

// fakeClock drives a Pacer without real sleeps. Slept durations are
// recorded and the clock advances by them, simulating a caller that
// waits exactly as told.
type fakeClock struct {
	mu    sync.Mutex
	t     time.Time
	waits []time.Duration
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
	c.t = c.t.Add(d)
	return nil
}

func newFakePacer(t *testing.T, perSecond float64) (*Pacer, *fakeClock) {
	t.Helper()
	p, err := NewPacer(perSecond)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p.now = clock.now
	p.sleep = clock.sleep
	return p, clock
}

func TestPacer_SequentialCadence(t *testing.T) {
	p, clock := newFakePacer(t, 2.0)
	ctx := context.Background()

	// First call is admitted immediately; each subsequent call waits out
	// the remainder of the 500ms interval.
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Acquire(ctx))
	}

	var total time.Duration
	for _, w := range clock.waits {
		total += w
	}
	// 4 spaced admissions after the first: at least (N-1) * interval.
	assert.GreaterOrEqual(t, total, 4*500*time.Millisecond)
}

func TestPacer_ConcurrentSpanLowerBound(t *testing.T) {
	if testing.Short() {
		t.Skip("real-time cadence test")
	}

	const n = 10
	p, err := NewPacer(20.0) // 50ms interval keeps the test fast
	require.NoError(t, err)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Acquire(context.Background())
		}()
	}
	wg.Wait()
	span := time.Since(start)

	// Wall-clock span between the 1st and Nth admission must be at least
	// (N-1) * interval, with a little slack for timer granularity.
	min := time.Duration(n-1)*p.Interval() - 10*time.Millisecond
	assert.GreaterOrEqual(t, span, min, "span %v below pacing floor", span)
}

func TestPacer_AcquireCancelledContext(t *testing.T) {
	p, err := NewPacer(2.0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Acquire(ctx), context.Canceled)
}

func TestPacer_CancelDuringWait(t *testing.T) {
	p, err := NewPacer(0.5) // 2s interval forces the second caller to wait
	require.NoError(t, err)

	require.NoError(t, p.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Acquire(ctx), context.DeadlineExceeded)
}
