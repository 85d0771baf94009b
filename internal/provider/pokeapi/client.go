// Package pokeapi provides the HTTP client for the PokeAPI v2 species catalog.
//
// PokeAPI is read-only, keyed by name or numeric id, and paginates its index
// endpoints with limit/offset and a "next" link. It cannot combine filter
// predicates server-side; the filter engine intersects list responses itself.
// Rate limiting is handled via a token bucket limiter.
package pokeapi

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

	"golang.org/x/time/rate"

	"github.com/albapepper/rosterdex/internal/common"
	"github.com/albapepper/rosterdex/internal/metrics"
)

// DefaultBaseURL is the public PokeAPI v2 endpoint.
const DefaultBaseURL = "https://pokeapi.co/api/v2"

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration
	PageSize          int
	Logger            *slog.Logger
	Metrics           *metrics.Metrics
	HTTPClient        *http.Client
}

// Client is the PokeAPI HTTP client. It implements catalog.Client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a PokeAPI client with rate limiting.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 300
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 200
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	rps := float64(opts.RequestsPerMinute) / 60.0
	burst := opts.RequestsPerMinute / 30
	if burst < 1 {
		burst = 1
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		pageSize:   opts.PageSize,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

// get performs a rate-limited GET request and decodes the JSON body into out.
// endpoint is the metrics label, path is relative to the base URL.
//
// 404 responses wrap common.ErrNotFound; transport failures, timeouts and any
// other non-200 status wrap common.ErrUpstreamUnavailable. Cancellation of
// ctx is returned as-is so callers can tell it apart from an outage.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveCatalog(endpoint, outcome(err), time.Since(start))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		if cerr := contextErr(ctx, path); cerr != nil {
			return cerr
		}
		return fmt.Errorf("rate limit wait: %w: %w", common.ErrUpstreamUnavailable, err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if cerr := contextErr(ctx, path); cerr != nil {
			return cerr
		}
		return fmt.Errorf("http request %s: %w: %w", path, common.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body %s: %w: %w", path, common.ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("pokeapi %s: %w", path, common.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		c.logger.Warn("Catalog request failed", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("pokeapi %s returned %d: %s: %w",
			path, resp.StatusCode, truncate(body, 200), common.ErrUpstreamUnavailable)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response %s: %w: %w", path, common.ErrUpstreamUnavailable, err)
	}
	return nil
}

// getPaginated walks a limit/offset index endpoint until "next" is empty.
func (c *Client) getPaginated(ctx context.Context, endpoint, path string) ([]namedResource, error) {
	var all []namedResource
	offset := 0

	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(c.pageSize))
		params.Set("offset", strconv.Itoa(offset))

		var page pageResponse
		if err := c.get(ctx, endpoint, path, params, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Results...)

		if page.Next == nil || *page.Next == "" || len(page.Results) == 0 {
			break
		}
		offset += len(page.Results)
	}

	return all, nil
}

// contextErr classifies a finished ctx: cancellation is passed through
// untouched, an expired deadline is an upstream timeout.
func contextErr(ctx context.Context, path string) error {
	switch ctx.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return fmt.Errorf("pokeapi %s timed out: %w: %w", path, common.ErrUpstreamUnavailable, context.DeadlineExceeded)
	default:
		return ctx.Err()
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, common.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
