// Package external wraps the third-party services CareWatch talks to: the
// email provider and the text-generation service. All outbound HTTP goes
// through BaseClient, which adds circuit breaking, retries with backoff,
// request ID propagation and error mapping.
package external

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"carewatch/internal/types"
)

// RetryPolicy bounds how often and how long a provider call is retried.
// SendGrid deliveries and completion calls each set their own.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy is three retries between 500ms and 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// BaseClient is the HTTP doer shared by the SendGrid client and the go-openai
// client. Each provider gets its own breaker so a failing email provider does
// not stop anomaly analysis.
type BaseClient struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	policy    RetryPolicy
	userAgent string
	sleep     func(time.Duration)
}

// BaseClientOption configures a BaseClient.
type BaseClientOption func(*BaseClient)

// WithSleepFunc replaces time.Sleep between attempts.
func WithSleepFunc(fn func(time.Duration)) BaseClientOption {
	return func(c *BaseClient) { c.sleep = fn }
}

// NewBaseClient creates a BaseClient whose breaker is named breakerName in
// logs and health output. The breaker opens after six consecutive failed
// attempts and half-opens after 30s.
func NewBaseClient(
	httpClient *http.Client,
	breakerName string,
	policy RetryPolicy,
	userAgent string,
	opts ...BaseClientOption,
) *BaseClient {
	c := &BaseClient{
		client: httpClient,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:        breakerName,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
		policy:    policy,
		userAgent: userAgent,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BreakerState reports the circuit breaker state.
func (c *BaseClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Do sends req and returns the first response that is neither a 429 nor a
// 5xx; the caller closes its body. The request ID from the context is
// forwarded as X-Request-Id.
//
// When every attempt fails, when the breaker is open or when the context ends
// between attempts, Do returns an upstream_* AppError and no response.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if id := types.GetRequestID(req.Context()); id != "" {
		req.Header.Set("X-Request-Id", id)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	body, err := drainBody(req)
	if err != nil {
		return nil, err
	}

	var (
		last    *http.Response
		lastErr error
	)
	attempts := c.policy.MaxRetries + 1
	for attempt := range attempts {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
			req.ContentLength = int64(len(body))
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, err := c.client.Do(req)
			if err != nil {
				return nil, err
			}
			if retryable(r.StatusCode) {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})
		if err == nil {
			return resp, nil
		}

		if last != nil {
			last.Body.Close()
		}
		last, lastErr = resp, err

		if breakerRejected(err) || req.Context().Err() != nil {
			break
		}
		if attempt < attempts-1 {
			c.sleep(c.computeBackoff(attempt, resp))
		}
	}

	if last != nil {
		last.Body.Close()
	}
	return nil, mapError(last, lastErr)
}

// drainBody reads the request body so every attempt can resend it.
func drainBody(req *http.Request) ([]byte, error) {
	if req.Body == nil {
		return nil, nil
	}
	defer req.Body.Close()
	b, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to buffer request body", err)
	}
	return b, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func breakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// computeBackoff returns the wait before the next attempt. A Retry-After
// header wins when present; otherwise the wait doubles per attempt with
// jitter. Both are kept within the policy's bounds.
func (c *BaseClient) computeBackoff(attempt int, resp *http.Response) time.Duration {
	if wait, ok := retryAfter(resp); ok {
		return min(max(wait, c.policy.MinWait), c.policy.MaxWait)
	}

	lo := float64(c.policy.MinWait)
	hi := math.Min(lo*math.Pow(2, float64(attempt)), float64(c.policy.MaxWait))
	if hi <= lo {
		return c.policy.MinWait
	}
	return time.Duration(lo + rand.Float64()*(hi-lo))
}

// retryAfter parses a Retry-After header given as seconds or an HTTP date.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		return time.Until(at), true
	}
	return 0, false
}

// mapError converts the last failed attempt into an AppError. Rate limiting
// keeps its own code so callers can report it separately.
func mapError(resp *http.Response, err error) *types.AppError {
	switch {
	case breakerRejected(err):
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, "circuit breaker open", err)
	case resp != nil && resp.StatusCode == http.StatusTooManyRequests:
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, "upstream rate limit exceeded", err)
	case resp != nil && resp.StatusCode >= 500:
		return types.NewAppError(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("upstream returned %d after retries", resp.StatusCode), err)
	}
	return types.NewAppError(types.ErrCodeUpstreamUnavailable, "upstream request failed", err)
}
