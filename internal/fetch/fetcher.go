// Package fetch performs authenticated HTTP GETs against upstream feed
// sources. Any HTTP response, success or not, is a Result; only
// transport-level failures (DNS, timeout, reset) come back as errors.
// The fetcher never retries; retry policy belongs to the caller.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result is the outcome of one upstream GET. ETag and LastModified are
// captured for future conditional-fetch use; they are stored with each
// snapshot but not yet sent back upstream.
type Result struct {
	Body         []byte
	StatusCode   int
	ETag         string
	LastModified string
}

// OK reports whether the upstream responded with a 2xx status.
func (r *Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client fetches feed payloads over HTTP.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a fetch client. A zero timeout means none beyond what
// the transport enforces.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch issues one GET against url. When apiKey is non-empty it is sent
// both as a bearer token and as an X-API-Key header; the upstream provider
// accepts either depending on endpoint.
func (c *Client) Fetch(ctx context.Context, url, apiKey string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", url, err)
	}

	return &Result{
		Body:         body,
		StatusCode:   resp.StatusCode,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}
