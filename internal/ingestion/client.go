package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default configuration values for provider HTTP clients.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// httpFetcher wraps http.Client with retry and exponential backoff.
// Every provider source embeds one; providers rate-limit and flake, so
// a plain Get is not enough.
type httpFetcher struct {
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	userAgent   string
}

// FetcherOption configures an httpFetcher.
type FetcherOption func(*httpFetcher)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *httpFetcher) {
		f.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) FetcherOption {
	return func(f *httpFetcher) {
		f.maxRetries = n
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *httpFetcher) {
		f.client = client
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) FetcherOption {
	return func(f *httpFetcher) {
		f.userAgent = ua
	}
}

func newHTTPFetcher(opts ...FetcherOption) *httpFetcher {
	f := &httpFetcher{
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// get performs a GET with retries. Retries on transport errors and on
// 5xx / 429 responses; other non-200 statuses fail immediately.
func (f *httpFetcher) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var lastErr error
	delay := f.retryDelay

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * f.backoffMult)
			if delay > f.maxDelay {
				delay = f.maxDelay
			}
		}

		body, retryable, err := f.doGet(ctx, url, headers)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("get %s: retries exhausted: %w", url, lastErr)
}

func (f *httpFetcher) doGet(ctx context.Context, url string, headers map[string]string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	return body, false, nil
}
