// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wcapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an API failure into the stable taxonomy the batch
// engine reports on. Classification is by HTTP status for response
// errors and by cause for transport errors.
type Kind string

const (
	// KindNotFound means the record does not exist in the catalog.
	KindNotFound Kind = "not_found"

	// KindAuth means the credential pair or scope was rejected.
	KindAuth Kind = "auth"

	// KindRateLimited means the server returned 429 despite pacing.
	// Retryable by re-running the batch, never retried in-call.
	KindRateLimited Kind = "rate_limited"

	// KindService means a 5xx that survived the transport retry budget.
	KindService Kind = "service"

	// KindNetwork covers timeouts, connection and TLS failures.
	KindNetwork Kind = "network"

	// KindInvalidIdentifier means the OCN failed local validation and no
	// call was issued.
	KindInvalidIdentifier Kind = "invalid_identifier"

	// KindUnknown is the fallback for anything unclassified.
	KindUnknown Kind = "unknown"
)

// APIError is a classified catalog API failure.
type APIError struct {
	Kind   Kind
	Status int
	OCN    string
	Err    error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("catalog %s error (status %d) for OCN %s", e.Kind, e.Status, e.OCN)
	case e.Err != nil:
		return fmt.Sprintf("catalog %s error for OCN %s: %v", e.Kind, e.OCN, e.Err)
	default:
		return fmt.Sprintf("catalog %s error for OCN %s", e.Kind, e.OCN)
	}
}

// Unwrap supports errors.Is/As on the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a non-2xx HTTP status to an error kind.
func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindService
	default:
		return KindUnknown
	}
}

// ErrKind returns the taxonomy kind of err, or KindUnknown when err is
// not an APIError.
func ErrKind(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsRateLimited reports whether err is a rate-limit failure. A
// rate-limit during a holdings symbol loop aborts the remaining
// symbols, so callers branch on this.
func IsRateLimited(err error) bool {
	return ErrKind(err) == KindRateLimited
}

// Reason renders err as the user-facing one-line failure reason used in
// batch error lists and grouped summaries.
func Reason(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch apiErr.Kind {
	case KindNotFound:
		return "record not found"
	case KindAuth:
		return "authentication failed"
	case KindRateLimited:
		return "rate limited by server"
	case KindService:
		return fmt.Sprintf("service error (status %d)", apiErr.Status)
	case KindNetwork:
		return "network error"
	case KindInvalidIdentifier:
		return "invalid identifier"
	default:
		return "unknown error"
	}
}
