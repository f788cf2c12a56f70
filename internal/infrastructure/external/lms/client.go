// Package lms implements the LMS feature-export API client.
// The LMS exposes a paginated read-only export of per-student behavioral
// and academic features; this client paces itself against the export
// endpoints and maps records into domain feature vectors.
package lms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/edupulse/student-insight-hub/internal/domain/student"
	"github.com/edupulse/student-insight-hub/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the LMS export client.
type ClientConfig struct {
	// BaseURL is the LMS API base URL
	BaseURL string

	// APIKey authenticates export requests
	APIKey string

	// Program restricts exports to one educational program (empty = all)
	Program string

	// PageSize is the export page size
	PageSize int

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// RetryConfig for retry behavior
	RetryConfig RetryConfig

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables request logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		PageSize:          200,
		Timeout:           30 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
		RetryConfig:       DefaultRetryConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the LMS feature-export API client. It satisfies the worker's
// feature source contract: FetchAll and FetchUpdatedSince.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	logger      *slog.Logger
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
	mapper      *Mapper
}

// NewClient creates a new LMS export client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.PageSize <= 0 {
		config.PageSize = 200
	}

	logger := config.Logger
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:      logger,
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		breaker: circuitbreaker.New("lms-export",
			circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
				logger.Warn("circuit state changed",
					"breaker", name, "from", from.String(), "to", to.String())
			}),
		),
		mapper: NewMapper(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EXPORT OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// ListFeatureRecords fetches one page of the feature export.
func (c *Client) ListFeatureRecords(ctx context.Context, req FeatureExportRequestDTO) ([]FeatureRecordDTO, *Meta, error) {
	params := url.Values{}
	if req.Program != "" {
		params.Set("program", req.Program)
	}
	if req.UpdatedSince != nil {
		params.Set("updated_since", req.UpdatedSince.UTC().Format(time.RFC3339))
	}
	if req.Page > 0 {
		params.Set("page", strconv.Itoa(req.Page))
	}
	if req.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(req.PerPage))
	}

	path := "/api/v1/export/features"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var response APIResponse[[]FeatureRecordDTO]
	if err := c.doRequest(ctx, http.MethodGet, path, &response); err != nil {
		return nil, nil, fmt.Errorf("list feature records: %w", err)
	}

	if !response.Success {
		return nil, nil, fmt.Errorf("lms api error: %s", response.Error)
	}

	return response.Data, response.Meta, nil
}

// FetchAll pulls the complete feature export, page by page.
func (c *Client) FetchAll(ctx context.Context) ([]*student.Features, error) {
	return c.fetch(ctx, nil)
}

// FetchUpdatedSince pulls only records modified after the given time.
func (c *Client) FetchUpdatedSince(ctx context.Context, since time.Time) ([]*student.Features, error) {
	return c.fetch(ctx, &since)
}

func (c *Client) fetch(ctx context.Context, since *time.Time) ([]*student.Features, error) {
	var all []*student.Features
	page := 1

	for {
		records, meta, err := c.ListFeatureRecords(ctx, FeatureExportRequestDTO{
			Program:      c.config.Program,
			UpdatedSince: since,
			Page:         page,
			PerPage:      c.config.PageSize,
		})
		if err != nil {
			return nil, err
		}

		features, mapErrs := c.mapper.FeaturesFromDTOs(records)
		for _, mapErr := range mapErrs {
			// Bad rows are logged and skipped; the ingest layer does its
			// own validation anyway.
			c.logger.Warn("skipping malformed export record", "error", mapErr)
		}
		all = append(all, features...)

		if !meta.HasMore() {
			return all, nil
		}
		page++
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSPORT
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs an HTTP request with rate limiting, circuit breaking
// and retries.
func (c *Client) doRequest(ctx context.Context, method, path string, result interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.config.RetryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.config.RetryConfig.CalculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.rateLimiter.Allow(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		err := c.breaker.Execute(ctx, func(ctx context.Context) error {
			return c.doSingleRequest(ctx, method, path, result)
		})
		if err == nil {
			return nil
		}

		lastErr = err

		if !c.isRetryable(err) {
			return err
		}

		var rateLimitErr *RateLimitError
		if errors.As(err, &rateLimitErr) {
			c.rateLimiter.RecordRateLimitHit(rateLimitErr.RetryAfter)
		}
	}

	return fmt.Errorf("request failed after %d retries: %w", c.config.RetryConfig.MaxRetries, lastErr)
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, result interface{}) error {
	fullURL := c.config.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	if c.config.Debug {
		c.logger.Debug("lms api request", "method", method, "path", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 60 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, parseErr := strconv.Atoi(ra); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitError{
			RetryAfter: retryAfter,
			Message:    "rate limit exceeded",
		}
	}

	if resp.StatusCode >= 400 {
		var apiErr APIErrorDTO
		if jsonErr := json.Unmarshal(respBody, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return &apiErr
		}
		return fmt.Errorf("lms api error: status %d", resp.StatusCode)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// isRetryable reports whether the error warrants another attempt.
func (c *Client) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	// The breaker rejecting outright is not worth retrying in this loop.
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return false
	}

	var apiErr *APIErrorDTO
	if errors.As(err, &apiErr) {
		return apiErr.Code == "SERVER_ERROR" || apiErr.Code == "TEMPORARILY_UNAVAILABLE"
	}

	errStr := err.Error()
	for _, marker := range []string{"timeout", "connection refused", "temporary", "reset", "EOF"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the LMS export API is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	var response APIResponse[map[string]interface{}]
	err := c.doSingleRequest(ctx, http.MethodGet, "/api/v1/health", &response)
	return err == nil && response.Success
}

// ClientStatus describes the current client state.
type ClientStatus struct {
	RateLimiter   RateLimiterStatus
	BreakerState  circuitbreaker.State
	BreakerCounts circuitbreaker.Counts
	IsHealthy     bool
}

// Status returns the current status of the client.
func (c *Client) Status(ctx context.Context) ClientStatus {
	return ClientStatus{
		RateLimiter:   c.rateLimiter.Status(),
		BreakerState:  c.breaker.State(),
		BreakerCounts: c.breaker.Counts(),
		IsHealthy:     c.IsHealthy(ctx),
	}
}

// Reset restores the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.breaker.Reset()
}
