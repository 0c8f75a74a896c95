package erclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds everything needed to build a Client or AsyncClient.
type Config struct {
	// BaseURL is the site root, e.g. https://sandbox.pamdas.org.
	BaseURL string
	// TokenURL defaults to {BaseURL}/oauth2/token/.
	TokenURL string
	ClientID string
	Username string
	Password string
	// Token is a static bearer token, used only when Username/Password are empty.
	Token string

	Version   string
	UserAgent string

	// Connection-level retry of transient statuses.
	TransportRetries int
	TransportBackoff time.Duration
	RetryStatuses    []int

	// Whole-call retry for requests that opt in.
	RetryAttempts int
	RetryDelay    time.Duration

	RequestsPerSecond float64
	Burst             int

	CircuitBreaker bool
	HTTPCache      bool

	// Timeout bounds each blocking HTTP exchange; zero means none.
	Timeout time.Duration
	// ConnectTimeout and ReadTimeout bound the cooperative client's connections.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	FanOutWorkers int
}

// Defaults
const (
	defaultClientID       = "das_web_client"
	defaultRetryAttempts  = 5
	defaultRetryDelay     = 5 * time.Second
	defaultTransportRetry = 5
	defaultBackoffFactor  = 1500 * time.Millisecond
	defaultFanOutWorkers  = 5
	defaultConnectTimeout = 3100 * time.Millisecond
	defaultReadTimeout    = 20 * time.Second
	defaultKeepAlive      = 30 * time.Second
)

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.TokenURL == "" && c.BaseURL != "" {
		c.TokenURL = c.BaseURL + "/oauth2/token/"
	}
	if c.ClientID == "" {
		c.ClientID = defaultClientID
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.UserAgent == "" {
		c.UserAgent = "erclient-go"
	}
	if c.TransportRetries == 0 {
		c.TransportRetries = defaultTransportRetry
	}
	if c.TransportBackoff == 0 {
		c.TransportBackoff = defaultBackoffFactor
	}
	if len(c.RetryStatuses) == 0 {
		c.RetryStatuses = []int{http.StatusBadGateway}
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.FanOutWorkers <= 0 {
		c.FanOutWorkers = defaultFanOutWorkers
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	c = c.withDefaults()
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base url is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base url %q is not absolute", c.BaseURL))
	}
	if c.Token == "" && (c.Username == "" || c.Password == "") {
		errs = append(errs, errors.New("either token or username and password are required"))
	}
	if _, err := NormalizeVersion(c.Version); err != nil {
		errs = append(errs, err)
	}
	if c.TransportRetries < 0 || c.RetryAttempts < 0 {
		errs = append(errs, errors.New("retry counts must not be negative"))
	}
	return errors.Join(errs...)
}

// Option customizes client construction.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	base       http.RoundTripper
	tokenCache TokenCache
	observer   Observer
	limiter    Limiter
}

// WithLogger sets the client logger. The default discards everything.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithRoundTripper replaces the innermost HTTP transport.
func WithRoundTripper(rt http.RoundTripper) Option { return func(o *options) { o.base = rt } }

// WithTokenCache shares token storage, e.g. across service replicas.
func WithTokenCache(c TokenCache) Option { return func(o *options) { o.tokenCache = c } }

// WithObserver installs a telemetry sink.
func WithObserver(obs Observer) Option { return func(o *options) { o.observer = obs } }

// WithLimiter replaces the built-in per-host rate limiter.
func WithLimiter(l Limiter) Option { return func(o *options) { o.limiter = l } }
