package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxErrorBody = 2048
	maxRetryWait = 30 * time.Second
)

// StatusError is a non-2xx answer from an upstream data source.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// IsStatus reports whether err carries the given upstream status.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// ClientOption configures Client.
type ClientOption func(*Client)

// Client is the outbound side of the data sources. Every request waits on a shared token
// bucket, and throttled or failing upstream answers are retried with backoff.
type Client struct {
	hc      *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	header  http.Header
	sleep   func(context.Context, time.Duration) error
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout: 30 * time.Second,
		backoff: 500 * time.Millisecond,
		header:  http.Header{},
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.hc == nil {
		c.hc = &http.Client{Timeout: c.timeout}
	}
	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit paces requests to perMinute with a burst of one. Zero disables pacing.
func WithRateLimit(perMinute int) ClientOption {
	return func(c *Client) {
		if perMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithRetries retries transport errors, 429 and 5xx answers up to n times. The wait
// doubles from base unless the upstream sends Retry-After.
func WithRetries(n int, base time.Duration) ClientOption {
	return func(c *Client) {
		c.retries = n
		if base > 0 {
			c.backoff = base
		}
	}
}

// WithHeader adds a header to every request. Per-request headers win.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// Get fetches rawURL with query appended. A non-2xx answer is returned as *StatusError
// after the retries are spent; on success the caller owns the response body.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values, header http.Header) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}
		resp, err := c.do(ctx, u.String(), header)
		if err == nil {
			return resp, nil
		}
		wait, retry := c.retryAfter(err, attempt)
		if !retry || attempt >= c.retries {
			return nil, err
		}
		if serr := c.sleep(ctx, wait); serr != nil {
			return nil, err
		}
	}
}

// GetJSON decodes a 2xx JSON answer into dest.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, dest interface{}) error {
	resp, err := c.Get(ctx, rawURL, query, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", resp.Request.URL.Path, err)
	}
	return nil
}

type retryableError struct {
	err   error
	after time.Duration
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (c *Client) do(ctx context.Context, target string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	for k, vs := range c.header {
		req.Header[k] = vs
	}
	for k, vs := range header {
		req.Header[k] = vs
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &retryableError{err: fmt.Errorf("request %s: %w", req.URL.Path, err)}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	serr := &StatusError{Code: resp.StatusCode, Body: string(body)}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &retryableError{err: serr, after: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	return nil, serr
}

func (c *Client) retryAfter(err error, attempt int) (time.Duration, bool) {
	var re *retryableError
	if !errors.As(err, &re) {
		return 0, false
	}
	if re.after > 0 {
		return re.after, true
	}
	d := c.backoff << attempt
	if d <= 0 || d > maxRetryWait {
		d = maxRetryWait
	}
	return d, true
}

// parseRetryAfter reads the delay-seconds form and the HTTP-date form, capped at maxRetryWait.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = time.Until(at)
	}
	if d < 0 {
		return 0
	}
	if d > maxRetryWait {
		return maxRetryWait
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
