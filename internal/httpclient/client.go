// Package httpclient provides the one HTTP client shared by catalog
// queries, schema fetches, and payload downloads.
//
// The client makes exactly one attempt per call. Failed requests surface
// immediately; whether a dataset failure aborts the run is a pipeline
// decision, not a transport one. Timeouts and TLS posture are fixed at
// construction so the rest of the code never reaches into http.Client.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "katalog/1.0"
)

// Config carries the construction-time knobs. The zero value yields a
// 30s timeout, the default user agent, and normal TLS verification.
type Config struct {
	// Timeout bounds each request, connection setup included.
	Timeout time.Duration

	// UserAgent is sent with every request unless a per-call header
	// overrides it.
	UserAgent string

	// InsecureSkipVerify disables TLS certificate checks. Some catalog
	// distributions sit behind hosts with broken certificates; probing
	// those is the only intended use.
	InsecureSkipVerify bool

	// Transport replaces the default *http.Transport when non-nil.
	// Tests inject canned responses and failures through it.
	Transport http.RoundTripper
}

// Client issues single-attempt HTTP requests with a fixed user agent.
type Client struct {
	hc        *http.Client
	userAgent string
}

// New builds a Client, filling zero Config fields with defaults.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	rt := cfg.Transport
	if rt == nil {
		rt = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicitly configurable
			},
		}
	}
	return &Client{
		hc:        &http.Client{Timeout: timeout, Transport: rt},
		userAgent: ua,
	}
}

// Do issues one request and returns whatever comes back. Non-2xx
// statuses are responses, not errors; status handling belongs to the
// caller, who must also close the body.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, headers http.Header) (*http.Response, error) {
	switch {
	case method == "":
		return nil, fmt.Errorf("httpclient: empty method")
	case url == "":
		return nil, fmt.Errorf("httpclient: empty url")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("httpclient: build request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	return c.hc.Do(req)
}

// Get issues a single GET.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, headers)
}

// Post issues a single POST with the given body.
func (c *Client) Post(ctx context.Context, url string, body []byte, headers http.Header) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, url, body, headers)
}
