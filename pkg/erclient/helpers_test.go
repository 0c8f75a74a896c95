package erclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockTransport is an http.RoundTripper that delegates to a handler function.
type mockTransport struct {
	fn func(*http.Request) (*http.Response, error)
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.fn(req)
}

// jsonResponse builds a fake *http.Response with the given status and JSON body.
func jsonResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// testConfig returns a static-token config with millisecond retry delays.
func testConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		Token:            "static-token",
		TransportRetries: 2,
		TransportBackoff: time.Millisecond,
		RetryAttempts:    3,
		RetryDelay:       time.Millisecond,
	}
}

// newTestServer starts an httptest server and a Client pointed at it.
func newTestServer(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(testConfig(srv.URL), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
