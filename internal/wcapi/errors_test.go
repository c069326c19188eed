// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wcapi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusNotFound, KindNotFound},
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusInternalServerError, KindService},
		{http.StatusBadGateway, KindService},
		{http.StatusTeapot, KindUnknown},
	}
	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("fetching: %w", &APIError{Kind: KindNetwork, OCN: "1", Err: cause})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("errors.As failed to find APIError")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is failed to find wrapped cause")
	}
	if apiErr.Kind != KindNetwork {
		t.Errorf("Kind = %v, want %v", apiErr.Kind, KindNetwork)
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", &APIError{Kind: KindNotFound, OCN: "1"}, "record not found"},
		{"auth", &APIError{Kind: KindAuth, OCN: "1"}, "authentication failed"},
		{"rate limited", &APIError{Kind: KindRateLimited, OCN: "1"}, "rate limited by server"},
		{"service with status", &APIError{Kind: KindService, Status: 503, OCN: "1"}, "service error (status 503)"},
		{"network", &APIError{Kind: KindNetwork, OCN: "1"}, "network error"},
		{"invalid", &APIError{Kind: KindInvalidIdentifier, OCN: ""}, "invalid identifier"},
		{"plain error", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reason(tt.err); got != tt.want {
				t.Errorf("Reason = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrKind_PlainError(t *testing.T) {
	if got := ErrKind(errors.New("boom")); got != KindUnknown {
		t.Errorf("ErrKind = %v, want %v", got, KindUnknown)
	}
}
