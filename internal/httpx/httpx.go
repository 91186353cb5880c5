package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single upstream retrieval.
	DefaultTimeout = 10 * time.Second
	// DefaultAttempts is the total number of tries for transient failures.
	DefaultAttempts = 3

	initialBackoff = 1 * time.Second
	maxBackoff     = 8 * time.Second

	// maxBodySize caps how much of an upstream response we are willing
	// to read. Quote documents are small.
	maxBodySize = 4 << 20
)

// StatusError is a non-2xx upstream response. Client errors (4xx) are not
// retried; server errors are treated as transient.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}

// Temporary reports whether the status warrants a retry.
func (e *StatusError) Temporary() bool { return e.Code >= 500 }

// FetchError is the terminal failure after the retry budget is exhausted.
type FetchError struct {
	URL      string
	Attempts int
	Last     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Last)
}

func (e *FetchError) Unwrap() error { return e.Last }

// Client is a small wrapper around http.Client with sane defaults.
// Every request carries an identifying User-Agent so the upstream does
// not see an anonymous automated tool.
type Client struct {
	HTTP        *http.Client
	UserAgent   string
	Headers     map[string]string
	MaxAttempts int

	// BackoffFunc returns the delay before the retry following the given
	// attempt. Defaults to Backoff.
	BackoffFunc func(attempt int) time.Duration
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
	}
	return &Client{
		HTTP:        &http.Client{Timeout: timeout, Transport: transport},
		UserAgent:   "portfoliotracker/1.0",
		MaxAttempts: DefaultAttempts,
	}
}

// Do sends the request with the client's default headers applied.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range c.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return c.HTTP.Do(req)
}

// Backoff returns the delay before the retry following the given attempt,
// counted from 1. The schedule doubles from 1s and caps at 8s.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := initialBackoff << (attempt - 1)
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}
	return d
}

// Fetch performs a GET with retry and exponential backoff. Timeouts and
// network errors are retried; 4xx responses and malformed URLs are
// returned immediately. Exhausting the budget yields a *FetchError. No
// delay is applied after the final attempt.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.get(ctx, req.Clone(ctx))
		if err == nil {
			return body, nil
		}
		if !Retryable(err) {
			return nil, err
		}
		last = err
		if attempt == attempts {
			break
		}
		backoff := c.BackoffFunc
		if backoff == nil {
			backoff = Backoff
		}
		timer := time.NewTimer(backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, &FetchError{URL: url, Attempts: attempts, Last: last}
}

func (c *Client) get(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

// Retryable classifies an error as transient. Cancellation of the caller's
// context and client-error statuses are terminal; everything else that can
// come out of a GET (timeouts, refused connections, resets, 5xx) is worth
// another attempt.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
