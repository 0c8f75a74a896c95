package erclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxErrorBody bounds how much of a failure response is kept.
const maxErrorBody = 1 << 20

// Limiter throttles outbound calls per key.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// RetryConfig drives the whole-call retry loop: Attempts tries in total with a
// fixed Delay between them.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// Transport is the single outbound call primitive shared by Client and AsyncClient.
type Transport struct {
	logger    *zap.Logger
	http      *http.Client
	baseURL   string
	version   string
	userAgent string
	creds     *CredentialStore
	limiter   Limiter
	limitKey  string
	observer  Observer
	strategy  strategy
	retry     RetryConfig
}

// Call executes req and returns its envelope, or an *APIError.
func (t *Transport) Call(ctx context.Context, req *Request) (*Envelope, error) {
	payload, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}
	if !req.Retry || t.retry.Attempts <= 1 {
		return t.once(ctx, req, payload, contentType)
	}
	return t.callWithRetry(ctx, req, payload, contentType)
}

func (t *Transport) callWithRetry(ctx context.Context, req *Request, payload []byte, contentType string) (*Envelope, error) {
	var (
		env     *Envelope
		attempt int
	)
	op := func() error {
		attempt++
		e, err := t.once(ctx, req, payload, contentType)
		if err == nil {
			env = e
			return nil
		}
		if !t.retryable(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(t.retry.Delay), uint64(t.retry.Attempts-1)),
		ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		t.logger.Warn("erclient.call.retrying",
			zap.String("endpoint", endpointLabel(req)),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		t.observer.ObserveRetry(endpointLabel(req), attempt)
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

// retryable decides whether a failed attempt is worth repeating. A rejected
// token is dropped first so the next attempt logs in again.
func (t *Transport) retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch KindOf(err) {
	case KindServiceUnreachable:
		return true
	case KindBadCredentials:
		if t.creds.static != nil {
			return false
		}
		t.creds.Invalidate(ctx)
		return true
	default:
		return false
	}
}

// once performs exactly one logical attempt: auth, throttle, send, map.
func (t *Transport) once(ctx context.Context, req *Request, payload []byte, contentType string) (*Envelope, error) {
	target, err := t.resolve(req)
	if err != nil {
		return nil, err
	}

	auth, err := t.creds.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx, t.limitKey); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range auth {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := t.strategy.do(ctx, t.http, httpReq)
	elapsed := time.Since(start)
	if err != nil {
		t.observer.ObserveRequest(endpointLabel(req), method, 0, elapsed)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s: %w", method, target, ctx.Err())
		}
		t.logger.Warn("erclient.http.failed",
			zap.String("endpoint", endpointLabel(req)),
			zap.String("method", method),
			zap.String("url", redact(target)),
			zap.Error(err))
		return nil, networkError(method, redact(target), err)
	}
	t.observer.ObserveRequest(endpointLabel(req), method, resp.StatusCode, elapsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		apiErr := MapError(resp.StatusCode, raw).(*APIError)
		apiErr.Method, apiErr.URL = method, redact(target)
		t.logger.Warn("erclient.http.error_status",
			zap.String("endpoint", endpointLabel(req)),
			zap.String("method", method),
			zap.String("url", apiErr.URL),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", apiErr.Kind.String()),
			zap.String("detail", apiErr.Detail),
			zap.Duration("latency", elapsed))
		return nil, apiErr
	}

	if req.Stream {
		return &Envelope{StatusCode: resp.StatusCode, Header: resp.Header, Stream: resp.Body}, nil
	}

	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, networkError(method, redact(target), err)
	}

	t.logger.Debug("erclient.http.success",
		zap.String("endpoint", endpointLabel(req)),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed))

	return &Envelope{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       unwrap(raw),
		Raw:        raw,
	}, nil
}

// resolve builds the absolute URL: {base}/api/{version}/{path}?{query}.
// Absolute paths are used as given, with Query merged over their own parameters.
func (t *Transport) resolve(req *Request) (string, error) {
	var raw string
	if strings.HasPrefix(req.Path, "http://") || strings.HasPrefix(req.Path, "https://") {
		raw = req.Path
	} else {
		version := t.version
		if req.Version != "" {
			v, err := NormalizeVersion(req.Version)
			if err != nil {
				return "", err
			}
			version = v
		}
		raw = t.baseURL + "/api/" + version + "/" + strings.TrimLeft(req.Path, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func endpointLabel(req *Request) string {
	if req.Endpoint != "" {
		return req.Endpoint
	}
	return "custom"
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}
