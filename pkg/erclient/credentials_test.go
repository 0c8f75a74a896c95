package erclient

import (
	"context"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testTokenURL = "https://er.test/oauth2/token/"

// newStoreWithTransport creates a CredentialStore whose token endpoint is fn.
func newStoreWithTransport(t *testing.T, cfg CredentialConfig, fn func(*http.Request) (*http.Response, error)) *CredentialStore {
	t.Helper()
	if cfg.TokenURL == "" {
		cfg.TokenURL = testTokenURL
	}
	return NewCredentialStore(cfg, &http.Client{Transport: &mockTransport{fn: fn}}, nil, zap.NewNop())
}

func passwordCfg() CredentialConfig {
	return CredentialConfig{ClientID: "das_web_client", Username: "ranger", Password: "s3cret"}
}

// readForm parses the urlencoded grant body.
func readForm(t *testing.T, req *http.Request) url.Values {
	t.Helper()
	require.NoError(t, req.ParseForm())
	return req.PostForm
}

// ─── Static token ─────────────────────────────────────────────────────────────

func TestEnsureValid_StaticTokenNeverHitsTokenEndpoint(t *testing.T) {
	store := newStoreWithTransport(t, CredentialConfig{Token: "static-abc"}, func(*http.Request) (*http.Response, error) {
		t.Fatal("token endpoint must not be called for a static token")
		return nil, nil
	})

	h, err := store.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer static-abc", h.Get("Authorization"))

	store.Invalidate(context.Background())
	h, err = store.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer static-abc", h.Get("Authorization"))
}

// ─── Password grant + cache reuse ─────────────────────────────────────────────

func TestEnsureValid_PasswordGrantThenCached(t *testing.T) {
	var calls atomic.Int32
	store := newStoreWithTransport(t, passwordCfg(), func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
		form := readForm(t, req)
		assert.Equal(t, "password", form.Get("grant_type"))
		assert.Equal(t, "ranger", form.Get("username"))
		assert.Equal(t, "s3cret", form.Get("password"))
		assert.Equal(t, "das_web_client", form.Get("client_id"))
		return jsonResponse(http.StatusOK, `{"access_token":"a1","token_type":"Bearer","expires_in":3600,"refresh_token":"r1"}`), nil
	})

	h, err := store.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer a1", h.Get("Authorization"))

	_, err = store.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load(), "second call within validity must not authenticate")
}

// ─── Expiry padding ──────────────────────────────────────────────────────────

func TestEnsureValid_ExpiryIsPadded(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newStoreWithTransport(t, passwordCfg(), func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"access_token":"a1","expires_in":3600}`), nil
	})
	store.now = func() time.Time { return now }

	_, err := store.EnsureValid(context.Background())
	require.NoError(t, err)

	tok, ok, _ := store.cache.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, now.Add(55*time.Minute), tok.ExpiresAt)
}

func TestEnsureValid_ShortTTLKeepsHalfItsLifetime(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var grants int
	store := newStoreWithTransport(t, passwordCfg(), func(*http.Request) (*http.Response, error) {
		grants++
		return jsonResponse(http.StatusOK, `{"access_token":"a1","expires_in":60}`), nil
	})
	store.now = func() time.Time { return now }

	_, err := store.EnsureValid(context.Background())
	require.NoError(t, err)

	tok, _, _ := store.cache.Load(context.Background())
	assert.Equal(t, now.Add(30*time.Second), tok.ExpiresAt)

	_, err = store.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, grants, "a short-lived token is reused inside its window")
}

func TestEnsureValid_PaddingNeverExceedsHalfTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newStoreWithTransport(t, passwordCfg(), func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"access_token":"a1","expires_in":600}`), nil
	})
	store.now = func() time.Time { return now }

	_, err := store.EnsureValid(context.Background())
	require.NoError(t, err)

	tok, _, _ := store.cache.Load(context.Background())
	assert.Equal(t, now.Add(5*time.Minute), tok.ExpiresAt)
}

// ─── Expired token → exactly one refresh ─────────────────────────────────────

func TestEnsureValid_ExpiredUsesRefreshGrant(t *testing.T) {
	var grants []string
	store := newStoreWithTransport(t, passwordCfg(), func(req *http.Request) (*http.Response, error) {
		form := readForm(t, req)
		grants = append(grants, form.Get("grant_type"))
		if form.Get("grant_type") == "refresh_token" {
			assert.Equal(t, "r-old", form.Get("refresh_token"))
		}
		return jsonResponse(http.StatusOK, `{"access_token":"fresh","expires_in":3600,"refresh_token":"r-new"}`), nil
	})
	require.NoError(t, store.cache.Store(context.Background(), Token{
		AccessToken:  "stale",
		RefreshToken: "r-old",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}))

	h, err := store.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer fresh", h.Get("Authorization"))
	assert.Equal(t, []string{"refresh_token"}, grants)
}

func TestEnsureValid_RefreshFailsFallsBackToPassword(t *testing.T) {
	var grants []string
	store := newStoreWithTransport(t, passwordCfg(), func(req *http.Request) (*http.Response, error) {
		form := readForm(t, req)
		grants = append(grants, form.Get("grant_type"))
		if form.Get("grant_type") == "refresh_token" {
			return jsonResponse(http.StatusBadRequest, `{"error":"invalid_grant"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"access_token":"by-password","expires_in":3600}`), nil
	})
	require.NoError(t, store.cache.Store(context.Background(), Token{
		AccessToken: "stale", RefreshToken: "r-old", ExpiresAt: time.Now().Add(-time.Minute),
	}))

	h, err := store.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer by-password", h.Get("Authorization"))
	assert.Equal(t, []string{"refresh_token", "password"}, grants)
}

// ─── Failure clears the cache ────────────────────────────────────────────────

func TestEnsureValid_FailedLoginClearsCache(t *testing.T) {
	store := newStoreWithTransport(t, passwordCfg(), func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"detail":"invalid credentials"}`), nil
	})
	require.NoError(t, store.cache.Store(context.Background(), Token{
		AccessToken: "stale", ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := store.EnsureValid(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, ok, _ := store.cache.Load(context.Background())
	assert.False(t, ok, "failed grant must clear cached token")
}

func TestEnsureValid_RejectedGrantIsBadCredentials(t *testing.T) {
	store := newStoreWithTransport(t, passwordCfg(), func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, `{"error":"invalid_grant"}`), nil
	})

	_, err := store.EnsureValid(context.Background())
	assert.ErrorIs(t, err, ErrBadCredentials)
	assert.Equal(t, http.StatusBadRequest, err.(*APIError).StatusCode)
}

func TestEnsureValid_TokenEndpointDownIsServiceUnreachable(t *testing.T) {
	store := newStoreWithTransport(t, passwordCfg(), func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, `maintenance`), nil
	})

	_, err := store.EnsureValid(context.Background())
	assert.ErrorIs(t, err, ErrServiceUnreachable)
}

func TestEnsureValid_NoCredentials(t *testing.T) {
	store := newStoreWithTransport(t, CredentialConfig{}, func(*http.Request) (*http.Response, error) {
		t.Fatal("no grant should be attempted")
		return nil, nil
	})

	_, err := store.EnsureValid(context.Background())
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestEnsureValid_EmptyAccessTokenRejected(t *testing.T) {
	store := newStoreWithTransport(t, passwordCfg(), func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"access_token":"","expires_in":3600}`), nil
	})

	_, err := store.EnsureValid(context.Background())
	assert.ErrorIs(t, err, ErrBadCredentials)
}

// ─── Invalidate keeps the refresh token ──────────────────────────────────────

func TestInvalidate_NextCallRefreshes(t *testing.T) {
	var grants []string
	store := newStoreWithTransport(t, passwordCfg(), func(req *http.Request) (*http.Response, error) {
		grants = append(grants, readForm(t, req).Get("grant_type"))
		return jsonResponse(http.StatusOK, `{"access_token":"t","expires_in":3600,"refresh_token":"r"}`), nil
	})

	_, err := store.EnsureValid(context.Background())
	require.NoError(t, err)
	store.Invalidate(context.Background())
	_, err = store.EnsureValid(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"password", "refresh_token"}, grants)
}

// ─── Separate stores never share tokens ──────────────────────────────────────

func TestCredentialStore_InstancesAreIsolated(t *testing.T) {
	a := newStoreWithTransport(t, CredentialConfig{Token: "tenant-a"}, nil)
	b := newStoreWithTransport(t, CredentialConfig{Token: "tenant-b"}, nil)

	ha, _ := a.EnsureValid(context.Background())
	hb, _ := b.EnsureValid(context.Background())
	assert.NotEqual(t, ha.Get("Authorization"), hb.Get("Authorization"))
}

func TestToken_Header(t *testing.T) {
	assert.Equal(t, "Bearer x", Token{AccessToken: "x"}.Header())
	assert.Equal(t, "Bearer x", Token{AccessToken: "x", TokenType: "bearer"}.Header())
	assert.Equal(t, "Token x", Token{AccessToken: "x", TokenType: "Token"}.Header())
}
