// Package edgar fetches and parses pages of the regulatory filing archive:
// per-entity directory listings, per-filing directories, filing indexes and
// the structured ownership documents they point to.
package edgar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/ratelimit"

	"insider-data/internal/slogx"
)

const (
	// DefaultBaseURL is the archive host.
	DefaultBaseURL = "https://www.sec.gov"
	// ArchivePath prefixes every entity directory.
	ArchivePath = "/Archives/edgar/data/"
	// DefaultUserAgent mimics a desktop browser.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/80.0.3987.163 Safari/537.36"
	// DefaultThrottleBackoff is the fixed pause after a throttled response.
	DefaultThrottleBackoff = 60 * time.Second
	// DefaultMaxRPS stays under the archive's fair-access ceiling of 10 requests per second.
	DefaultMaxRPS = 9

	throttlePhrase = "SEC.gov | Request Rate Threshold Exceeded"
)

// ErrThrottled is returned by a fetch whose page title carries the rate-limit phrase.
var ErrThrottled = errors.New("edgar: request rate threshold exceeded")

// Config configures a Client. Zero values fall back to the defaults above.
type Config struct {
	BaseURL         string
	UserAgent       string
	MaxRPS          int
	ThrottleBackoff time.Duration
	// MaxThrottleRetries bounds retries of one throttled fetch; 0 retries forever.
	MaxThrottleRetries uint64
	HTTPClient         *http.Client
}

// Client fetches archive pages. Throttled responses are retried after a fixed
// pause; that retry is independent of any adaptive pacing done by callers.
// A Client is safe for concurrent use.
type Client struct {
	http            *http.Client
	baseURL         string
	headers         http.Header
	limiter         ratelimit.Limiter
	throttleBackoff time.Duration
	maxRetries      uint64
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	c := &Client{
		http:            cfg.HTTPClient,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		throttleBackoff: cfg.ThrottleBackoff,
		maxRetries:      cfg.MaxThrottleRetries,
	}
	if c.http == nil {
		c.http = newHTTPClient()
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.throttleBackoff <= 0 {
		c.throttleBackoff = DefaultThrottleBackoff
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	c.headers = browserHeaders(ua)
	if cfg.MaxRPS > 0 {
		c.limiter = ratelimit.New(cfg.MaxRPS)
	} else {
		c.limiter = ratelimit.NewUnlimited()
	}
	return c
}

// GetName returns the provider name.
func (c *Client) GetName() string { return "EDGAR" }

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// ListingURL is the directory listing of one entity.
func (c *Client) ListingURL(eid string) string {
	return c.baseURL + ArchivePath + eid + "/"
}

// FilingDirURL is the directory of one filing.
func (c *Client) FilingDirURL(eid, oid string) string {
	return c.baseURL + ArchivePath + eid + "/" + oid + "/"
}

// DocumentURL is the raw structured document of a filing. Only the last
// segment of href is kept, so rendered (xsl) variants resolve to the raw file.
func (c *Client) DocumentURL(eid, oid, href string) string {
	return c.FilingDirURL(eid, oid) + path.Base(href)
}

// ResolveURL resolves href against the page it was found on.
func (c *Client) ResolveURL(page, href string) string {
	base, err := url.Parse(page)
	if err != nil {
		return c.baseURL + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return c.baseURL + href
	}
	return base.ResolveReference(ref).String()
}

// Fetch returns the body of rawURL. A throttled response is retried after the
// fixed backoff until it clears; transport failures are returned as-is.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var b backoff.BackOff = backoff.NewConstantBackOff(c.throttleBackoff)
	if c.maxRetries > 0 {
		b = backoff.WithMaxRetries(b, c.maxRetries)
	}
	b = backoff.WithContext(b, ctx)

	op := func() ([]byte, error) {
		body, err := c.get(ctx, rawURL)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if Throttled(body) {
			return nil, ErrThrottled
		}
		return body, nil
	}
	notify := func(err error, wait time.Duration) {
		slogx.FromContext(ctx).Warn("archive throttled, retrying", "url", rawURL, "wait", wait, "error", err)
	}
	return backoff.RetryNotifyWithData(op, b, notify)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	c.limiter.Take()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		slogx.FromContext(ctx).Debug("archive non-200", "url", rawURL, "status", resp.StatusCode)
	}
	return body, nil
}

// Throttled reports whether body is the archive's rate-limit page.
func Throttled(body []byte) bool {
	if !bytes.Contains(body, []byte(throttlePhrase)) {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	return strings.Contains(doc.Find("title").First().Text(), throttlePhrase)
}
