// Package jwks provides JWKS acquisition and caching: a bounded HTTPS
// fetcher, a per-URI penalty box that throttles refetches against
// unknown-kid abuse, and a cache that resolves (URI, kid) to a key while
// coalescing concurrent fetches for the same URI.
package jwks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxBodyBytes is the response-size ceiling applied by Fetcher's
// default implementation, per spec §4.3 / §6.
const DefaultMaxBodyBytes = 500 * 1024

// DefaultTimeout bounds the latency of a single fetch.
const DefaultTimeout = 10 * time.Second

// Fetcher retrieves the raw bytes of a JWKS document. Implementations must
// enforce a response-size ceiling and reject non-2xx responses; network
// failures should be returned as *FetchError so callers can distinguish
// them from validation failures and avoid poisoning a cache on a
// transient outage.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// FetchError wraps a network or transport failure encountered while
// retrieving a JWKS document.
type FetchError struct {
	URI     string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jwks fetch %s: %s: %v", e.URI, e.Message, e.Cause)
	}
	return fmt.Sprintf("jwks fetch %s: %s", e.URI, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// HTTPFetcher is the default Fetcher: a resource-constrained HTTPS GET.
type HTTPFetcher struct {
	httpClient   *http.Client
	maxBodyBytes int64
}

// FetchOption configures an HTTPFetcher.
type FetchOption func(*HTTPFetcher)

// WithHTTPClient overrides the HTTP client used for fetches (default: a
// client with a DefaultTimeout deadline).
func WithHTTPClient(c *http.Client) FetchOption {
	return func(f *HTTPFetcher) { f.httpClient = c }
}

// WithMaxBodyBytes overrides the response-size ceiling.
func WithMaxBodyBytes(n int64) FetchOption {
	return func(f *HTTPFetcher) { f.maxBodyBytes = n }
}

// NewHTTPFetcher creates a Fetcher backed by net/http.
func NewHTTPFetcher(opts ...FetchOption) *HTTPFetcher {
	f := &HTTPFetcher{
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, &FetchError{URI: uri, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URI: uri, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URI: uri, Message: fmt.Sprintf("non-2xx response: %d", resp.StatusCode)}
	}

	limited := io.LimitReader(resp.Body, f.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, &FetchError{URI: uri, Message: "failed to read response body", Cause: err}
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, &FetchError{URI: uri, Message: fmt.Sprintf("response exceeds %d byte ceiling", f.maxBodyBytes)}
	}

	return body, nil
}
