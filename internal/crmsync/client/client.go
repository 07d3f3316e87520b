// Package client provides the HTTP client for the LeadConnector CRM API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dim_dashboard_backend/platform/config"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/metrics"
	"dim_dashboard_backend/platform/validator"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production LeadConnector API host.
	DefaultBaseURL = "https://services.leadconnectorhq.com"
	// APIVersion is sent on every request in the Version header.
	APIVersion = "2021-07-28"
	// PageSize is the page size requested for both record kinds.
	PageSize = 100
	// DefaultMaxPages bounds a single pagination chain.
	DefaultMaxPages = 500

	endpointOpportunities = "opportunities_search"
	endpointMessages      = "messages_export"
)

// ErrPaginationExhausted is returned when a pagination chain does not terminate
// within the page budget or repeats a cursor.
var ErrPaginationExhausted = errors.New("pagination exhausted")

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: upstream status %d", e.Endpoint, e.StatusCode)
}

// Options tunes the client. Zero values pick the defaults.
type Options struct {
	BaseURL      string
	MaxPages     int
	Retries      int
	RetryBackoff time.Duration
	RPS          float64
	HTTPClient   *http.Client
}

// Client is the HTTP client for the CRM opportunity and message endpoints.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	val          *validator.Validator
	log          *logger.Logger
	maxPages     int
	retries      int
	retryBackoff time.Duration
}

// New creates a CRM client.
func New(opts Options, val *validator.Validator, log *logger.Logger) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	limit := rate.Inf
	burst := 1
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
		burst = max(1, int(opts.RPS))
	}

	return &Client{
		baseURL:      baseURL,
		httpClient:   httpClient,
		limiter:      rate.NewLimiter(limit, burst),
		val:          val,
		log:          log,
		maxPages:     maxPages,
		retries:      retries,
		retryBackoff: backoff,
	}
}

// NewFromConfig creates a CRM client from the sync configuration.
func NewFromConfig(cfg config.SyncConfig, val *validator.Validator, log *logger.Logger) *Client {
	return New(Options{
		BaseURL:  cfg.GetCRMBaseURL(),
		MaxPages: cfg.GetSyncMaxPages(),
		Retries:  cfg.GetSyncFetchRetries(),
		RPS:      cfg.GetSyncUpstreamRPS(),
	}, val, log)
}

// FetchOpportunities drains the page-numbered opportunity search for one clinic.
// It stops at the first page holding fewer than PageSize records.
func (c *Client) FetchOpportunities(ctx context.Context, creds Credentials) (Result[RawOpportunity], error) {
	var result Result[RawOpportunity]

	for page := 1; ; page++ {
		if page > c.maxPages {
			return result, fmt.Errorf("opportunities after %d pages: %w", c.maxPages, ErrPaginationExhausted)
		}

		params := url.Values{}
		params.Set("location_id", creds.LocationID)
		if creds.PipelineID != "" {
			params.Set("pipeline_id", creds.PipelineID)
		}
		params.Set("page", strconv.Itoa(page))
		params.Set("limit", strconv.Itoa(PageSize))

		var resp opportunitiesResponse
		if err := c.get(ctx, endpointOpportunities, "/opportunities/search", params, creds.APIToken, &resp); err != nil {
			return result, fmt.Errorf("fetch opportunities page %d: %w", page, err)
		}
		result.Requests++

		for _, item := range resp.Opportunities {
			if err := c.val.Struct(item); err != nil {
				result.Skipped++
				continue
			}
			raw, ok := item.toRaw()
			if !ok {
				result.Skipped++
				continue
			}
			result.Records = append(result.Records, raw)
		}

		if len(resp.Opportunities) < PageSize {
			return result, nil
		}
	}
}

// FetchMessages drains the cursor-paginated message export for one clinic.
// It stops when the response carries no nextCursor.
func (c *Client) FetchMessages(ctx context.Context, creds Credentials) (Result[RawMessage], error) {
	var result Result[RawMessage]
	seen := make(map[string]struct{})
	cursor := ""

	for {
		if result.Requests >= c.maxPages {
			return result, fmt.Errorf("messages after %d pages: %w", c.maxPages, ErrPaginationExhausted)
		}

		params := url.Values{}
		params.Set("locationId", creds.LocationID)
		params.Set("limit", strconv.Itoa(PageSize))
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp messagesResponse
		if err := c.get(ctx, endpointMessages, "/conversations/messages/export", params, creds.APIToken, &resp); err != nil {
			return result, fmt.Errorf("fetch messages page %d: %w", result.Requests+1, err)
		}
		result.Requests++

		for _, item := range resp.Messages {
			item = item.normalized()
			if err := c.val.Struct(item); err != nil {
				result.Skipped++
				continue
			}
			raw, ok := item.toRaw()
			if !ok {
				result.Skipped++
				continue
			}
			result.Records = append(result.Records, raw)
		}

		if resp.NextCursor == nil || strings.TrimSpace(*resp.NextCursor) == "" {
			return result, nil
		}
		next := strings.TrimSpace(*resp.NextCursor)
		if _, dup := seen[next]; dup {
			return result, fmt.Errorf("messages cursor %q repeated: %w", next, ErrPaginationExhausted)
		}
		seen[next] = struct{}{}
		cursor = next
	}
}

// get performs one logical GET with bounded retries for transient failures.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, token string, out any) error {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		status, err := c.doRequest(ctx, endpoint, path, params, token, out)
		if err == nil {
			return nil
		}
		if attempt >= c.retries || !retryable(ctx, status, err) {
			return err
		}

		c.log.UpstreamRetry(endpoint, attempt+1, status, err)
		delay := time.Duration((attempt+1)*(attempt+1)) * c.retryBackoff
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) doRequest(ctx context.Context, endpoint, path string, params url.Values, token string, out any) (int, error) {
	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Version", APIVersion)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream(endpoint, 0, time.Since(start))
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstream(endpoint, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.log.Error("crm unauthorized", "endpoint", endpoint, "status", resp.StatusCode)
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	default:
		c.log.Error("crm upstream error", "endpoint", endpoint, "status", resp.StatusCode)
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Error("crm decode failed", "endpoint", endpoint, "error", err)
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// retryable admits transport errors, 429 and 5xx. Auth and other 4xx are final.
func retryable(ctx context.Context, status int, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	// Decode failures arrive with a 200 and are not transient.
	return status == 0
}
