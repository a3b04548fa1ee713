package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultBaseDelay = 1 * time.Second
	maxRetries       = 3
	maxBodySnippet   = 2048
)

// Client wraps an http.Client with the retry and timeout policy the
// drama-catalog upstream needs. Transport-level faults (connection reset,
// DNS, timeout, TLS) are retried with exponential backoff; any received
// HTTP status is returned to the caller immediately so status-specific
// handling (rate-limit detection in particular) stays with the gateway.
type Client struct {
	httpc     *http.Client
	timeout   time.Duration
	baseDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithBaseDelay overrides the first retry delay. Used by tests to keep the
// backoff schedule in the millisecond range.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// New builds a Client with a pooled keep-alive transport.
func New(opts ...Option) *Client {
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     30 * time.Second,
	}
	c := &Client{
		httpc:     &http.Client{Transport: transport},
		timeout:   defaultTimeout,
		baseDelay: defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url and returns the response body. Non-2xx statuses come back
// as *HTTPError without retrying. Transport faults are retried up to 3 times
// with delays of base, 2*base, 4*base before the last error surfaces.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	err := retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", "DramaBox-API/2.0")
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpc.Do(req)
			if err != nil {
				// Parent cancellation is not a transient upstream fault.
				if ctx.Err() != nil {
					return retry.Unrecoverable(ctx.Err())
				}
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippet))
				return retry.Unrecoverable(&HTTPError{
					StatusCode: resp.StatusCode,
					Status:     resp.Status,
					Body:       strings.TrimSpace(string(snippet)),
				})
			}

			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(maxRetries+1),
		retry.Delay(c.baseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[upstream] retry %d/%d for %s: %v", n+1, maxRetries, url, err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("upstream get %s: %w", url, err)
	}
	return body, nil
}

// isRetryable reports whether an error is a transient transport fault:
// connection reset/refused, DNS failure, timeout, and TLS/socket level
// errors.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"connection reset",
		"connection refused",
		"broken pipe",
		"no such host",
		"tls:",
		"EOF",
		"context deadline exceeded",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
