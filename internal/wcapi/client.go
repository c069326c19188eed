// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package wcapi is the WorldCat Metadata API client. It performs the
// two remote fetch kinds (bibliographic record, summary holdings per
// institution), each call gated by the shared rate pacer, and maps
// failures into a stable taxonomy.
package wcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/pdiddy/bibrecord-engine/internal/httputil"
	"github.com/pdiddy/bibrecord-engine/internal/ratelimit"
	"github.com/pdiddy/bibrecord-engine/pkg/types"
)

// Default endpoints for the WorldCat Metadata API.
const (
	defaultTokenURL = "https://oauth.platform.worldcat.org/token"
	defaultBaseURL  = "https://metadata.api.oclc.org/worldcat"
	defaultScope    = "WorldCatMetadataAPI"

	bibPath      = "/manage/bibs/"
	holdingsPath = "/search/summary-holdings"

	marcxmlAccept = "application/marcxml+xml"
)

// Prometheus metrics for catalog API operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bibrecord_api_requests_total",
		Help: "Total catalog API requests by call kind and HTTP status",
	}, []string{"kind", "status"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bibrecord_api_errors_total",
		Help: "Total catalog API errors by taxonomy kind",
	}, []string{"kind"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bibrecord_api_request_duration_seconds",
		Help:    "Catalog API request duration in seconds by call kind",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"kind"})

	pacerWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bibrecord_pacer_wait_seconds",
		Help:    "Time spent waiting for a rate limiter slot",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
)

// Client performs catalog API calls. One Client is shared by all
// workers; it owns the connection pool and the OAuth token source, so
// no per-goroutine session state exists.
type Client struct {
	httpClient *http.Client
	pacer      *ratelimit.Pacer
	policy     httputil.Policy
	cfg        types.APIConfig
	logger     zerolog.Logger
}

// summaryHoldings is the wire shape of a summary holdings response.
type summaryHoldings struct {
	TotalHoldingCount     int `json:"totalHoldingCount"`
	TotalSharedPrintCount int `json:"totalSharedPrintCount"`
	TotalEditions         int `json:"totalEditions"`
}

// NewClient builds a catalog API client. Every outbound call acquires
// pacer first; record and holdings fetches draw from the same budget.
//
// When cfg.Key is set, requests authenticate through an OAuth2
// client-credentials token source that refreshes transparently. An
// empty key yields an unauthenticated client, which tests use against
// local fake servers.
func NewClient(cfg types.APIConfig, retry types.RetryConfig, pacer *ratelimit.Pacer) (*Client, error) {
	if pacer == nil {
		return nil, errors.New("rate pacer is required")
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.MetadataBaseURL == "" {
		cfg.MetadataBaseURL = defaultBaseURL
	}
	if cfg.SearchBaseURL == "" {
		cfg.SearchBaseURL = cfg.MetadataBaseURL
	}
	if cfg.Scope == "" {
		cfg.Scope = defaultScope
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	base := &http.Client{Timeout: cfg.Timeout}
	httpClient := base
	if cfg.Key != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.Key,
			ClientSecret: cfg.Secret,
			TokenURL:     cfg.TokenURL,
			Scopes:       []string{cfg.Scope},
		}
		// Route token requests through the timeout-bearing base client.
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &oauth2.Transport{
				Source: cc.TokenSource(tokenCtx),
				Base:   http.DefaultTransport,
			},
		}
	}

	return &Client{
		httpClient: httpClient,
		pacer:      pacer,
		policy:     httputil.NewPolicy(retry),
		cfg:        cfg,
		logger:     log.With().Str("component", "wcapi").Logger(),
	}, nil
}

// FetchRecord retrieves the raw MARCXML record for one OCN.
func (c *Client) FetchRecord(ctx context.Context, ocn string) ([]byte, error) {
	ocn, err := validOCN(ocn)
	if err != nil {
		return nil, err
	}

	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues("record").Observe(time.Since(start).Seconds())
	}()

	reqURL := c.cfg.MetadataBaseURL + bibPath + url.PathEscape(ocn)
	resp, err := c.get(ctx, reqURL, marcxmlAccept)
	if err != nil {
		return nil, c.transportError(ctx, "record", ocn, err)
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues("record", fmt.Sprintf("%d", resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("record", ocn, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, "record", ocn, err)
	}

	c.logger.Debug().Str("ocn", ocn).Int("bytes", len(body)).Msg("record fetched")
	return body, nil
}

// FetchHoldings retrieves summary holdings for one OCN across the given
// institution symbols, one paced call per symbol.
//
// Per-symbol failures other than rate limiting become error markers in
// the snapshot and the loop continues (partial success). A rate-limit
// failure propagates immediately without attempting the remaining
// symbols: a 429 under active pacing means the pacing budget itself is
// suspect and continuing would compound the violation.
func (c *Client) FetchHoldings(ctx context.Context, ocn string, symbols []string) (*types.HoldingsSnapshot, error) {
	ocn, err := validOCN(ocn)
	if err != nil {
		return nil, err
	}

	snap := &types.HoldingsSnapshot{OCN: ocn}
	for _, symbol := range symbols {
		entry, err := c.fetchSymbolHoldings(ctx, ocn, symbol)
		if err != nil {
			if IsRateLimited(err) || ctx.Err() != nil {
				return nil, err
			}
			snap.Holdings = append(snap.Holdings, types.InstitutionHoldings{
				InstitutionSymbol: symbol,
				Error:             Reason(err),
			})
			continue
		}
		snap.Holdings = append(snap.Holdings, *entry)
	}
	return snap, nil
}

// fetchSymbolHoldings performs one paced summary holdings call.
func (c *Client) fetchSymbolHoldings(ctx context.Context, ocn, symbol string) (*types.InstitutionHoldings, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues("holdings").Observe(time.Since(start).Seconds())
	}()

	params := url.Values{
		"oclcNumber":   {ocn},
		"heldBySymbol": {symbol},
	}
	reqURL := c.cfg.SearchBaseURL + holdingsPath + "?" + params.Encode()
	resp, err := c.get(ctx, reqURL, "application/json")
	if err != nil {
		return nil, c.transportError(ctx, "holdings", ocn, err)
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues("holdings", fmt.Sprintf("%d", resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("holdings", ocn, resp.StatusCode)
	}

	var sh summaryHoldings
	if err := json.NewDecoder(resp.Body).Decode(&sh); err != nil {
		return nil, c.wrapError(KindUnknown, ocn, fmt.Errorf("decoding holdings response: %w", err))
	}

	return &types.InstitutionHoldings{
		InstitutionSymbol:     symbol,
		TotalHoldingCount:     sh.TotalHoldingCount,
		TotalSharedPrintCount: sh.TotalSharedPrintCount,
		TotalEditions:         sh.TotalEditions,
	}, nil
}

// pace waits for the next global call slot, recording the wait.
func (c *Client) pace(ctx context.Context) error {
	start := time.Now()
	if err := c.pacer.Acquire(ctx); err != nil {
		return err
	}
	pacerWaitSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// get issues a GET through the transport retry wrapper.
func (c *Client) get(ctx context.Context, reqURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	return httputil.DoWithRetry(ctx, c.httpClient, req, c.policy)
}

// transportError classifies an error returned before any HTTP status
// was available: context cancellation passes through unchanged, token
// retrieval failures are auth errors, everything else is a network
// failure.
func (c *Client) transportError(ctx context.Context, kind, ocn string, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return c.wrapError(KindAuth, ocn, err)
	}
	c.logger.Warn().Str("call", kind).Str("ocn", ocn).Err(err).Msg("transport failure")
	return c.wrapError(KindNetwork, ocn, err)
}

// statusError builds the classified error for a non-200 response.
func (c *Client) statusError(kind, ocn string, status int) error {
	k := classifyStatus(status)
	apiErrorsTotal.WithLabelValues(string(k)).Inc()
	c.logger.Warn().
		Str("call", kind).
		Str("ocn", ocn).
		Int("status", status).
		Str("error_kind", string(k)).
		Msg("catalog request failed")
	return &APIError{Kind: k, Status: status, OCN: ocn}
}

func (c *Client) wrapError(kind Kind, ocn string, err error) error {
	apiErrorsTotal.WithLabelValues(string(kind)).Inc()
	return &APIError{Kind: kind, OCN: ocn, Err: err}
}

// validOCN trims and validates a catalog number. OCNs are plain digit
// strings; anything else fails locally without spending a call slot.
func validOCN(ocn string) (string, error) {
	ocn = strings.TrimSpace(ocn)
	if ocn == "" {
		return "", &APIError{Kind: KindInvalidIdentifier, OCN: ocn}
	}
	for _, r := range ocn {
		if r < '0' || r > '9' {
			return "", &APIError{Kind: KindInvalidIdentifier, OCN: ocn}
		}
	}
	return ocn, nil
}
