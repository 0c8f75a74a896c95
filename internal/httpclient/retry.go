package httpclient

import (
	"context"
	"io"
	"net/http"
	"slices"
	"time"

	"go.uber.org/zap"
)

// Backoff returns the sleep before retry number attempt (0-based): factor * 2^attempt.
func Backoff(factor time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return factor << attempt
}

// RetryPolicy configures the connection-level retry layer.
type RetryPolicy struct {
	MaxRetries    int
	BackoffFactor time.Duration
	Statuses      []int
}

// DefaultRetryPolicy retries a 502 up to five times starting at 1.5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    5,
		BackoffFactor: 1500 * time.Millisecond,
		Statuses:      []int{http.StatusBadGateway},
	}
}

// RetryTransport is an http.RoundTripper that transparently re-sends a request
// when the upstream answers with one of the configured transient statuses.
// Network errors are returned unchanged; they belong to the caller's retry loop.
type RetryTransport struct {
	next   http.RoundTripper
	policy RetryPolicy
	logger *zap.Logger
	tag    string
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryTransport wraps next. A nil next uses http.DefaultTransport.
func NewRetryTransport(next http.RoundTripper, policy RetryPolicy, logger *zap.Logger, tag string) *RetryTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryTransport{
		next:   next,
		policy: policy,
		logger: logger,
		tag:    tag,
		sleep:  sleepCtx,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if !t.retryable(resp.StatusCode) || attempt >= t.policy.MaxRetries {
			return resp, nil
		}
		// A consumed body that cannot be rewound cannot be re-sent.
		if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			return resp, nil
		}

		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()

		wait := Backoff(t.policy.BackoffFactor, attempt)
		t.logger.Warn(t.tag+".transient_status",
			zap.String("method", req.Method),
			zap.String("url", req.URL.Redacted()),
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt+1),
			zap.Duration("latency", time.Since(start)),
			zap.Duration("backoff", wait))

		if err := t.sleep(ctx, wait); err != nil {
			return nil, err
		}

		next := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			next.Body = body
		}
		req = next
	}
}

func (t *RetryTransport) retryable(status int) bool {
	return slices.Contains(t.policy.Statuses, status)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
