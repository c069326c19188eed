// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the configuration and data types shared across
// the fetch, verification and export stages.
package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "bibrecord-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// APIConfig holds WorldCat Metadata API credentials and endpoints.
type APIConfig struct {
	HTTPConfig `yaml:",inline"`

	// Key and Secret are the WSKey credential pair.
	Key    string `json:"key,omitempty" yaml:"key,omitempty"`
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"`

	// Scope is the OAuth scope requested with the token (default "WorldCatMetadataAPI").
	Scope string `json:"scope" yaml:"scope"`

	// TokenURL is the OAuth client-credentials token endpoint.
	TokenURL string `json:"token_url" yaml:"token_url"`

	// MetadataBaseURL is the base URL for bibliographic record requests.
	MetadataBaseURL string `json:"metadata_base_url" yaml:"metadata_base_url"`

	// SearchBaseURL is the base URL for summary holdings requests.
	SearchBaseURL string `json:"search_base_url" yaml:"search_base_url"`
}

// RetryConfig holds the transport-level retry policy for transient failures.
// Retries happen within a single logical call; call initiation cadence is
// governed by the rate limiter, not by this policy.
type RetryConfig struct {
	// MaxAttempts is the number of retry attempts after the initial request (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BackoffBase is the base duration for exponential backoff (default 100ms).
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`

	// RetryableStatuses lists the HTTP status codes retried as transient
	// (default 500, 502, 503, 504).
	RetryableStatuses []int `json:"retryable_statuses" yaml:"retryable_statuses"`
}

// FetchConfig holds settings for the batch fetch stage.
type FetchConfig struct {
	// Workers is the worker pool size (default 10). The rate limiter, not
	// the pool, is the true throughput ceiling; this stays small.
	Workers int `json:"workers" yaml:"workers"`

	// RequestsPerSecond is the global outbound call ceiling shared by all
	// workers and both call kinds (default 2.0).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// Symbols is the institution symbol list queried for holdings.
	Symbols []string `json:"symbols" yaml:"symbols"`

	// DataDir is the base directory for fetched artifacts
	// (contains records/, holdings/, reports/, index/).
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// ExportConfig holds settings for the spreadsheet export stage.
type ExportConfig struct {
	// DataDir is the base directory containing records/ and holdings/.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// RecordsFile, HoldingsFile and MergedFile are the output workbook names.
	RecordsFile  string `json:"records_file" yaml:"records_file"`
	HoldingsFile string `json:"holdings_file" yaml:"holdings_file"`
	MergedFile   string `json:"merged_file" yaml:"merged_file"`
}

// DefaultSymbols is the institution symbol list queried when the
// configuration does not provide one.
var DefaultSymbols = []string{
	"QGE", "QGK", "NLTUD", "NETUE", "QGQ", "L2U", "NLMAA",
	"GRG", "GRU", "QHU", "QGJ", "VU@", "WURST",
}

// EngineConfig groups all stage configurations.
type EngineConfig struct {
	API    APIConfig    `json:"api" yaml:"api"`
	Retry  RetryConfig  `json:"retry" yaml:"retry"`
	Fetch  FetchConfig  `json:"fetch" yaml:"fetch"`
	Export ExportConfig `json:"export" yaml:"export"`
}
