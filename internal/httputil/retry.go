// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pdiddy/bibrecord-engine/pkg/types"
)

// Defaults applied when the retry policy leaves a field unset. The
// retryable set mirrors the transient statuses the catalog API is known
// to return under load.
const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 100 * time.Millisecond
)

var defaultRetryableStatuses = []int{
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// Policy is a normalized retry policy derived from configuration.
type Policy struct {
	maxAttempts int
	backoffBase time.Duration
	retryable   map[int]bool
}

// NewPolicy builds a Policy from cfg, filling unset fields with defaults.
func NewPolicy(cfg types.RetryConfig) Policy {
	p := Policy{
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		retryable:   make(map[int]bool),
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = defaultMaxAttempts
	}
	if p.backoffBase <= 0 {
		p.backoffBase = defaultBackoffBase
	}
	statuses := cfg.RetryableStatuses
	if len(statuses) == 0 {
		statuses = defaultRetryableStatuses
	}
	for _, s := range statuses {
		p.retryable[s] = true
	}
	return p
}

// Retryable reports whether status is in the transient set.
func (p Policy) Retryable(status int) bool {
	return p.retryable[status]
}

// DoWithRetry executes an HTTP request and retries responses whose
// status is in the policy's transient set, with exponential backoff
// starting at the policy's base and doubling each attempt.
//
// Only transient statuses are retried here; everything else (including
// 429) is returned to the caller for classification. On each retried
// response the body is drained and closed before sleeping. If the
// context is cancelled during a backoff wait the function returns
// ctx.Err(). After exhausting the attempt budget the last transient
// response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy Policy) (*http.Response, error) {
	backoff := policy.backoffBase

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !policy.Retryable(resp.StatusCode) {
			return resp, nil
		}

		// Exhausted attempts — return the transient response as-is.
		if attempt >= policy.maxAttempts {
			return resp, nil
		}

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		log.Debug().
			Str("url", req.URL.Path).
			Int("status", resp.StatusCode).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("transient response, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
