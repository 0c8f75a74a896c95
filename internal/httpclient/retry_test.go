package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, BackoffFactor: time.Millisecond, Statuses: []int{http.StatusBadGateway}}
}

func newClient(retries int) *http.Client {
	return &http.Client{Transport: NewRetryTransport(nil, fastPolicy(retries), zap.NewNop(), "test")}
}

// countingHandler returns failStatus for the first failCount calls and 200 afterwards.
func countingHandler(failCount int, failStatus int, successBody []byte) (http.Handler, *atomic.Int32) {
	var n atomic.Int32
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if int(n.Add(1)) <= failCount {
			w.WriteHeader(failStatus)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(successBody)
	}), &n
}

func TestBackoff_Exponential(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, Backoff(1500*time.Millisecond, 0))
	assert.Equal(t, 3*time.Second, Backoff(1500*time.Millisecond, 1))
	assert.Equal(t, 6*time.Second, Backoff(1500*time.Millisecond, 2))
	assert.Equal(t, time.Second, Backoff(time.Second, -3))
}

// ─── Success passes through ───────────────────────────────────────────────────

func TestRetryTransport_SuccessFirstAttempt(t *testing.T) {
	h, count := countingHandler(0, http.StatusBadGateway, []byte(`ok`))
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := newClient(3).Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, count.Load())
}

// ─── 502 retried then success ─────────────────────────────────────────────────

func TestRetryTransport_Retries502ThenSucceeds(t *testing.T) {
	h, count := countingHandler(2, http.StatusBadGateway, []byte(`ok`))
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := newClient(3).Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
	assert.EqualValues(t, 3, count.Load())
}

// ─── Exhaustion returns the last transient response ──────────────────────────

func TestRetryTransport_ExhaustedReturnsLastResponse(t *testing.T) {
	h, count := countingHandler(100, http.StatusBadGateway, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := newClient(2).Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.EqualValues(t, 3, count.Load(), "one attempt plus two retries")
}

// ─── Only designated statuses are retried ────────────────────────────────────

func TestRetryTransport_DoesNotRetryOtherStatuses(t *testing.T) {
	for _, status := range []int{http.StatusServiceUnavailable, http.StatusInternalServerError, http.StatusNotFound} {
		h, count := countingHandler(1, status, nil)
		srv := httptest.NewServer(h)

		resp, err := newClient(3).Get(srv.URL)
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, status, resp.StatusCode)
		assert.EqualValues(t, 1, count.Load(), "status %d must not be retried", status)
		srv.Close()
	}
}

// ─── POST body is re-sent on retry ───────────────────────────────────────────

func TestRetryTransport_PostBodyResentOnRetry(t *testing.T) {
	var received []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		received = append(received, string(b))
		if len(received) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL, bytes.NewReader([]byte(`{"a":1}`)))
	require.NoError(t, err)

	resp, err := newClient(2).Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, received, 2)
	assert.Equal(t, `{"a":1}`, received[0])
	assert.Equal(t, `{"a":1}`, received[1], "retry must carry the original body")
}

// ─── Context cancellation during backoff ─────────────────────────────────────

func TestRetryTransport_ContextCanceledDuringBackoff(t *testing.T) {
	h, _ := countingHandler(100, http.StatusBadGateway, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	client := &http.Client{Transport: NewRetryTransport(nil,
		RetryPolicy{MaxRetries: 5, BackoffFactor: time.Hour, Statuses: []int{http.StatusBadGateway}},
		zap.NewNop(), "test")}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	_, err := client.Do(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

// ─── Network errors are not retried here ─────────────────────────────────────

func TestRetryTransport_NetworkErrorReturned(t *testing.T) {
	var calls int
	rt := NewRetryTransport(roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("connection reset")
	}), fastPolicy(3), zap.NewNop(), "test")

	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	_, err := rt.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
