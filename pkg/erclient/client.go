// Package erclient is a typed client for the EarthRanger REST API.
//
// A Client owns one CredentialStore and one Transport. Calls are blocking;
// bulk reads may fan out over a bounded worker pool. AsyncClient offers the
// cooperative model with futures and is a separate instance.
package erclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/gregjones/httpcache"
	"go.uber.org/zap"

	"github.com/Checker-Finance/erclient/internal/httpclient"
	"github.com/Checker-Finance/erclient/internal/rate"
)

// Client is the blocking EarthRanger client.
type Client struct {
	cfg       Config
	logger    *zap.Logger
	creds     *CredentialStore
	transport *Transport
}

// New builds a blocking Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	return build(cfg, blockingStrategy{}, opts)
}

func build(cfg Config, strat strategy, opts []Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("erclient config: %w", err)
	}
	cfg = cfg.withDefaults()

	o := options{logger: zap.NewNop(), observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}

	base := o.base
	if base == nil {
		base = newBaseTransport(cfg)
	}
	retrying := httpclient.NewRetryTransport(base, httpclient.RetryPolicy{
		MaxRetries:    cfg.TransportRetries,
		BackoffFactor: cfg.TransportBackoff,
		Statuses:      cfg.RetryStatuses,
	}, o.logger, "erclient.transport")

	host := hostOf(cfg.BaseURL)

	var rt http.RoundTripper = retrying
	if cfg.HTTPCache {
		cached := httpcache.NewMemoryCacheTransport()
		cached.Transport = rt
		rt = cached
	}
	if cfg.CircuitBreaker {
		rt = newBreakerTransport(rt, "earthranger:"+host, o.logger, o.observer)
	}

	creds := NewCredentialStore(CredentialConfig{
		TokenURL: cfg.TokenURL,
		ClientID: cfg.ClientID,
		Username: cfg.Username,
		Password: cfg.Password,
		Token:    cfg.Token,
	}, &http.Client{Transport: retrying, Timeout: cfg.Timeout}, o.tokenCache, o.logger)
	creds.observer = o.observer

	limiter := o.limiter
	if limiter == nil && cfg.RequestsPerSecond > 0 {
		limiter = rate.NewManager(rate.Config{RequestsPerSecond: cfg.RequestsPerSecond, Burst: cfg.Burst})
	}

	version, _ := NormalizeVersion(cfg.Version)

	t := &Transport{
		logger:    o.logger,
		http:      &http.Client{Transport: rt, Timeout: cfg.Timeout},
		baseURL:   cfg.BaseURL,
		version:   version,
		userAgent: cfg.UserAgent,
		creds:     creds,
		limiter:   limiter,
		limitKey:  host,
		observer:  o.observer,
		strategy:  strat,
		retry:     RetryConfig{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay},
	}

	o.logger.Info("erclient.initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.String("version", version),
		zap.String("strategy", strat.name()),
		zap.Bool("static_token", creds.static != nil),
		zap.Bool("circuit_breaker", cfg.CircuitBreaker),
		zap.Bool("http_cache", cfg.HTTPCache))

	return &Client{cfg: cfg, logger: o.logger, creds: creds, transport: t}, nil
}

// newBaseTransport clones the default transport and applies connection bounds.
func newBaseTransport(cfg Config) http.RoundTripper {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ConnectTimeout > 0 {
		dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: defaultKeepAlive}
		tr.DialContext = dialer.DialContext
		tr.TLSHandshakeTimeout = cfg.ConnectTimeout
	}
	if cfg.ReadTimeout > 0 {
		tr.ResponseHeaderTimeout = cfg.ReadTimeout
	}
	return tr
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host
}

// Call executes an arbitrary request through the client's Transport.
func (c *Client) Call(ctx context.Context, req *Request) (*Envelope, error) {
	return c.transport.Call(ctx, req)
}

// Login forces token acquisition and reports credential problems up front.
func (c *Client) Login(ctx context.Context) error {
	_, err := c.creds.EnsureValid(ctx)
	return err
}

// request renders an endpoint, logging filters the endpoint does not accept.
func (c *Client) request(e Endpoint, params Params, args ...string) *Request {
	req, dropped := e.NewRequest(params, args...)
	if len(dropped) > 0 {
		c.logger.Debug("erclient.params.dropped",
			zap.String("endpoint", e.Name),
			zap.Strings("keys", dropped))
	}
	return req
}

// do executes req and decodes the unwrapped body into T.
func do[T any](ctx context.Context, c *Client, req *Request) (T, error) {
	var out T
	env, err := c.transport.Call(ctx, req)
	if err != nil {
		return out, err
	}
	if err := env.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// list builds a Pager for a paged endpoint.
func list[T any](c *Client, e Endpoint, params Params, opts PageOptions, args ...string) *Pager[T] {
	return newPager[T](c.transport, *c.request(e, params, args...), opts, c.cfg.FanOutWorkers)
}
