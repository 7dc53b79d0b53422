package importer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/rkshawon/interprep/internal/infrastructure/resilience"
)

const (
	// MaxFetchSize limits remote responses to 5MB
	MaxFetchSize = 5 * 1024 * 1024

	fetchTimeout = 20 * time.Second
	userAgent    = "interprep-importer/1.0"
)

// PageKind tells the extractor how to treat a fetched body.
type PageKind int

const (
	PageHTML PageKind = iota
	PageScript
)

// Page is a fetched remote document.
type Page struct {
	URL         string
	ContentType string
	Kind        PageKind
	Body        []byte
}

// Client fetches remote pages with retries, rate limiting, and a
// circuit breaker.
type Client struct {
	resty    *resty.Client
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	maxFetch int
}

// ClientOption tunes the fetch client.
type ClientOption func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.resty.SetTimeout(d)
		}
	}
}

// WithMaxFetchSize overrides the response size cap in bytes.
func WithMaxFetchSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxFetch = n
		}
	}
}

// NewClient creates a fetch client tuned for snippet imports.
func NewClient(opts ...ClientOption) *Client {
	// Retryable client supplies the pooled transport
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	restyClient := resty.New().
		SetTimeout(fetchTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("User-Agent", userAgent)
	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	breaker := resilience.New("importer", resilience.Settings{
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	c := &Client{
		resty:    restyClient,
		limiter:  rate.NewLimiter(rate.Limit(2), 2),
		breaker:  breaker,
		maxFetch: MaxFetchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads one page and classifies it for extraction.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	if c.breaker.State() == resilience.StateOpen {
		return nil, resilience.ErrCircuitOpen
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.resty.R().SetContext(ctx).Get(rawURL)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= 400 {
			return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode())
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	body := result.(*resty.Response).Body()
	if len(body) > c.maxFetch {
		return nil, fmt.Errorf("response exceeds %d bytes", c.maxFetch)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch %s: empty response", rawURL)
	}

	contentType := result.(*resty.Response).Header().Get("Content-Type")
	kind, err := classify(contentType, body)
	if err != nil {
		return nil, err
	}

	return &Page{URL: rawURL, ContentType: contentType, Kind: kind, Body: body}, nil
}

// BreakerState reports the fetch circuit breaker state.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// classify decides whether a body holds HTML to mine or a bare script.
// Plain text passes through as a script; the syntax check rejects
// anything that isn't JavaScript later in the pipeline.
func classify(contentType string, body []byte) (PageKind, error) {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}

	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = mimetype.Detect(body).String()
		if i := strings.Index(mediaType, ";"); i >= 0 {
			mediaType = strings.TrimSpace(mediaType[:i])
		}
	}

	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return PageHTML, nil
	case "application/javascript", "application/x-javascript", "text/javascript", "text/plain":
		return PageScript, nil
	}
	return 0, fmt.Errorf("unsupported content type %q", mediaType)
}
