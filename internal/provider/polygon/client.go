package polygon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"insider-data/internal/model"
	"insider-data/internal/slogx"
)

const (
	// DefaultBaseURL is the Polygon REST host.
	DefaultBaseURL = "https://api.polygon.io"

	// DefaultRequestsPerMinute is the free-tier budget per key.
	DefaultRequestsPerMinute = 5

	// Max 50k results per request
	maxLimit = 50000

	maxRetries = 3
	retryDelay = 15 * time.Second
)

// errRateLimited marks a 429 so the request is retried.
var errRateLimited = errors.New("polygon: rate limit (429)")

// Config configures a Client.
type Config struct {
	BaseURL           string
	APIKeys           []string
	RequestsPerMinute int
	CacheTTL          time.Duration
	RetryDelay        time.Duration
	HTTPClient        *http.Client
}

// Client fetches daily OHLCV bars from the aggregates API. Results are
// memoized per (ticker, from, to) for CacheTTL. Safe for concurrent use.
type Client struct {
	client     *http.Client
	baseURL    string
	keys       *keyPool
	cache      *cache.Cache
	retryDelay time.Duration
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	c := &Client{
		client:     cfg.HTTPClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		keys:       newKeyPool(cfg.APIKeys, cfg.RequestsPerMinute),
		retryDelay: cfg.RetryDelay,
	}
	if c.client == nil {
		c.client = newHTTPClient(len(cfg.APIKeys))
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.retryDelay <= 0 {
		c.retryDelay = retryDelay
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	c.cache = cache.New(ttl, 2*ttl)
	return c
}

// GetName returns provider name
func (c *Client) GetName() string { return "Polygon" }

// Close closes connections
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	c.cache.Flush()
	return nil
}

// DailyBars returns one bar per trading day in [from, to], ascending. OHLC and
// volume are unadjusted; AdjClose comes from the split-adjusted series. An
// unknown ticker or an empty range yields an empty slice and no error.
func (c *Client) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]model.Bar, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	key := ticker + "|" + from.Format(model.DateLayout) + "|" + to.Format(model.DateLayout)
	if v, ok := c.cache.Get(key); ok {
		return v.([]model.Bar), nil
	}

	raw, err := c.aggregates(ctx, ticker, from, to, false)
	if err != nil {
		return nil, err
	}
	var bars []model.Bar
	if len(raw) > 0 {
		adjusted, err := c.aggregates(ctx, ticker, from, to, true)
		if err != nil {
			return nil, err
		}
		bars = mergeAdjusted(raw, adjusted)
	}
	c.cache.Set(key, bars, cache.DefaultExpiration)
	return bars, nil
}

// mergeAdjusted converts unadjusted bars and takes AdjClose from the adjusted
// bar with the same timestamp, falling back to Close.
func mergeAdjusted(raw, adjusted []BarRaw) []model.Bar {
	adj := make(map[int64]float64, len(adjusted))
	for _, b := range adjusted {
		adj[b.Timestamp] = b.Close
	}
	bars := make([]model.Bar, 0, len(raw))
	for _, r := range raw {
		bar := r.ToBar()
		if v, ok := adj[r.Timestamp]; ok {
			bar.AdjClose = v
		}
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })
	return bars
}

func (c *Client) aggregates(ctx context.Context, ticker string, from, to time.Time, adjusted bool) ([]BarRaw, error) {
	next := c.buildDailyAggregatesURL(ticker, from, to, adjusted)
	var out []BarRaw
	for next != "" {
		resp, err := c.doAggregatesRequest(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("%s daily bars: %w", ticker, err)
		}
		if resp == nil {
			break
		}
		out = append(out, resp.Results...)
		next = resp.NextURL
	}
	return out, nil
}

// buildDailyAggregatesURL builds the daily aggregates URL without the API key.
func (c *Client) buildDailyAggregatesURL(ticker string, from, to time.Time, adjusted bool) string {
	u := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s", c.baseURL, url.PathEscape(ticker),
		from.Format(model.DateLayout), to.Format(model.DateLayout))
	q := url.Values{}
	q.Set("adjusted", strconv.FormatBool(adjusted))
	q.Set("limit", strconv.Itoa(maxLimit))
	q.Set("sort", "asc")
	return u + "?" + q.Encode()
}

// doAggregatesRequest runs one GET with retries on transport errors and 429.
// Returns (nil, nil) when the ticker is unknown.
func (c *Client) doAggregatesRequest(ctx context.Context, rawURL string) (*AggregatesResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
		result, err := c.requestOnce(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return nil, perm.err
		}
		lastErr = err
		slogx.FromContext(ctx).Debug("polygon request retry", "attempt", attempt, "error", err)
	}
	return nil, fmt.Errorf("API call failed after %d attempts: %w", maxRetries, lastErr)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }

func (c *Client) requestOnce(ctx context.Context, rawURL string) (*AggregatesResponse, error) {
	key, err := c.keys.acquire(ctx)
	if err != nil {
		return nil, &permanentError{err}
	}
	defer c.keys.release(key)

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &permanentError{fmt.Errorf("parse URL: %w", err)}
	}
	q := u.Query()
	q.Set("apiKey", key.value)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &permanentError{fmt.Errorf("create request: %w", err)}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, redactKey(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		slogx.FromContext(ctx).Warn("polygon rate limited", "key", key.prefix()+"...")
		return nil, errRateLimited
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return nil, &permanentError{fmt.Errorf("API status %d: %s", resp.StatusCode, string(body))}
	}

	var result AggregatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	switch result.Status {
	case "OK", "DELAYED":
		return &result, nil
	case "NOT_FOUND":
		return nil, nil
	default:
		return nil, &permanentError{fmt.Errorf("API status not OK: %s", result.Status)}
	}
}
