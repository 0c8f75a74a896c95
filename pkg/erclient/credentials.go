package erclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	// tokenExpiryBuffer is subtracted from the server-declared TTL so a token is
	// never presented right at its expiry boundary.
	tokenExpiryBuffer = 5 * time.Minute
	// defaultTokenTTL applies when the grant response omits expires_in.
	defaultTokenTTL = time.Hour

	grantPassword = "password"
	grantRefresh  = "refresh_token"
)

// staticTokenExpiry marks a caller-supplied token that never expires.
var staticTokenExpiry = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Token is a cached bearer credential.
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the token can still be presented at now.
func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// Header returns the Authorization header value.
func (t Token) Header() string {
	typ := t.TokenType
	if typ == "" || strings.EqualFold(typ, "bearer") {
		typ = "Bearer"
	}
	return typ + " " + t.AccessToken
}

// TokenCache persists the Credential Store's token. Load reports ok=false when empty.
type TokenCache interface {
	Load(ctx context.Context) (Token, bool, error)
	Store(ctx context.Context, tok Token) error
	Clear(ctx context.Context) error
}

// MemoryTokenCache is the default in-process TokenCache.
type MemoryTokenCache struct {
	mu  sync.RWMutex
	tok Token
	ok  bool
}

func (c *MemoryTokenCache) Load(context.Context) (Token, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tok, c.ok, nil
}

func (c *MemoryTokenCache) Store(_ context.Context, tok Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tok, c.ok = tok, true
	return nil
}

func (c *MemoryTokenCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tok, c.ok = Token{}, false
	return nil
}

// CredentialConfig selects the login mode. A Token without Username/Password is
// used as a static credential and the token endpoint is never contacted.
type CredentialConfig struct {
	TokenURL string
	ClientID string
	Username string
	Password string
	Token    string
}

// tokenResponse is the grant endpoint's reply.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// CredentialStore owns one client's token lifecycle: cached, refresh grant, password grant.
// No lock is held across a grant; two callers that both see an expired token
// may both log in and the last successful grant is kept.
type CredentialStore struct {
	logger   *zap.Logger
	client   *http.Client
	cfg      CredentialConfig
	static   *Token
	cache    TokenCache
	observer Observer
	now      func() time.Time
}

// NewCredentialStore creates a store. A nil cache uses a MemoryTokenCache.
func NewCredentialStore(cfg CredentialConfig, client *http.Client, cache TokenCache, logger *zap.Logger) *CredentialStore {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if cache == nil {
		cache = &MemoryTokenCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CredentialStore{
		logger:   logger,
		client:   client,
		cfg:      cfg,
		cache:    cache,
		observer: nopObserver{},
		now:      time.Now,
	}
	if cfg.Token != "" && cfg.Username == "" && cfg.Password == "" {
		s.static = &Token{AccessToken: cfg.Token, TokenType: "Bearer", ExpiresAt: staticTokenExpiry}
	}
	return s
}

// EnsureValid returns auth headers for the next call, acquiring a token when needed.
func (s *CredentialStore) EnsureValid(ctx context.Context) (http.Header, error) {
	tok, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	h := make(http.Header, 1)
	h.Set("Authorization", tok.Header())
	return h, nil
}

func (s *CredentialStore) token(ctx context.Context) (Token, error) {
	if s.static != nil {
		return *s.static, nil
	}

	cached, ok, err := s.cache.Load(ctx)
	if err != nil {
		s.logger.Warn("erclient.auth.cache_load_failed", zap.Error(err))
		ok = false
	}
	if ok && cached.Valid(s.now()) {
		return cached, nil
	}

	if ok && cached.RefreshToken != "" {
		fresh, err := s.grant(ctx, url.Values{
			"grant_type":    {grantRefresh},
			"refresh_token": {cached.RefreshToken},
		})
		if err == nil {
			return fresh, nil
		}
		s.logger.Warn("erclient.auth.refresh_failed", zap.Error(err))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		fresh, err := s.grant(ctx, url.Values{
			"grant_type": {grantPassword},
			"username":   {s.cfg.Username},
			"password":   {s.cfg.Password},
		})
		if err != nil {
			s.logger.Error("erclient.auth.login_failed",
				zap.String("username", s.cfg.Username),
				zap.Error(err))
			return Token{}, err
		}
		return fresh, nil
	}

	s.clear(ctx)
	return Token{}, &APIError{Kind: KindBadCredentials, Detail: "no valid token and no username/password configured"}
}

// Invalidate drops the cached token so the next call re-authenticates.
// A static token cannot be invalidated.
func (s *CredentialStore) Invalidate(ctx context.Context) {
	if s.static != nil {
		return
	}
	cached, ok, err := s.cache.Load(ctx)
	if err != nil || !ok {
		return
	}
	// Keep the refresh token so the next attempt can try a refresh grant first.
	cached.ExpiresAt = time.Time{}
	cached.AccessToken = ""
	if err := s.cache.Store(ctx, cached); err != nil {
		s.logger.Warn("erclient.auth.cache_store_failed", zap.Error(err))
	}
}

// grant performs one token exchange. Success overwrites the cache; failure clears it.
func (s *CredentialStore) grant(ctx context.Context, form url.Values) (Token, error) {
	grantType := form.Get("grant_type")
	if s.cfg.ClientID != "" {
		form.Set("client_id", s.cfg.ClientID)
	}

	tok, err := s.exchange(ctx, form)
	s.observer.ObserveGrant(grantType, err == nil)
	if err != nil {
		s.clear(ctx)
		return Token{}, err
	}

	if err := s.cache.Store(ctx, tok); err != nil {
		s.logger.Warn("erclient.auth.cache_store_failed", zap.Error(err))
	}
	s.logger.Info("erclient.auth.token_acquired",
		zap.String("grant_type", grantType),
		zap.Time("expires_at", tok.ExpiresAt))
	return tok, nil
}

func (s *CredentialStore) exchange(ctx context.Context, form url.Values) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Token{}, networkError(http.MethodPost, s.cfg.TokenURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return Token{}, networkError(http.MethodPost, s.cfg.TokenURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := MapError(resp.StatusCode, body).(*APIError)
		apiErr.Method, apiErr.URL = http.MethodPost, s.cfg.TokenURL
		// A rejected grant is a credentials problem whatever 4xx the server picked.
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			apiErr.Kind = KindBadCredentials
		}
		return Token{}, apiErr
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Token{}, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return Token{}, &APIError{Kind: KindBadCredentials, StatusCode: resp.StatusCode, Detail: "token endpoint returned empty access_token", Body: body}
	}

	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if tr.ExpiresIn <= 0 {
		ttl = defaultTokenTTL
	}
	// Short-lived tokens keep half their lifetime instead of expiring on arrival.
	padding := min(tokenExpiryBuffer, ttl/2)
	expiresAt := s.now().Add(ttl - padding)

	return Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *CredentialStore) clear(ctx context.Context) {
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("erclient.auth.cache_clear_failed", zap.Error(err))
	}
}
