// Package bootstrap builds an erclient.Client from service configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/erclient/internal/metrics"
	intsecrets "github.com/Checker-Finance/erclient/internal/secrets"
	"github.com/Checker-Finance/erclient/pkg/config"
	"github.com/Checker-Finance/erclient/pkg/erclient"
	pkgsecrets "github.com/Checker-Finance/erclient/pkg/secrets"
	"github.com/Checker-Finance/erclient/pkg/utils"
)

// ErrNoSecretsBackend is returned by Profiles when credentials come from the environment.
var ErrNoSecretsBackend = errors.New("profile discovery needs ER_SECRETS_SOURCE=aws")

// ProviderFunc builds the secrets backend for ER_SECRETS_SOURCE=aws.
type ProviderFunc func(ctx context.Context, region string) (pkgsecrets.Provider, error)

// Session resolves credentials for one service config and connects clients with them.
type Session struct {
	cfg    *config.Config
	logger *zap.Logger
	// resolver is nil when credentials come from the environment.
	resolver *intsecrets.ProfileResolver
}

// NewSession prepares the secrets backend named by cfg.SecretsSource.
// A nil newProvider uses AWS Secrets Manager.
func NewSession(ctx context.Context, cfg *config.Config, logger *zap.Logger, newProvider ProviderFunc) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{cfg: cfg, logger: logger}

	switch cfg.SecretsSource {
	case "", "env":
		return s, nil
	case "aws":
	default:
		return nil, fmt.Errorf("unknown ER_SECRETS_SOURCE %q (want env or aws)", cfg.SecretsSource)
	}

	if newProvider == nil {
		newProvider = pkgsecrets.NewAWSProvider
	}
	provider, err := newProvider(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("init secrets provider: %w", err)
	}
	s.resolver = intsecrets.NewProfileResolver(logger, cfg.Env, provider,
		pkgsecrets.NewCache[config.Credentials](cfg.CacheTTL))
	return s, nil
}

// Config returns the service config with the profile's credentials overlaid.
func (s *Session) Config(ctx context.Context) (*config.Config, error) {
	if s.resolver == nil {
		return s.cfg, nil
	}
	creds, err := s.resolver.Resolve(ctx, s.cfg.Profile)
	if err != nil {
		return nil, err
	}
	return s.cfg.WithCredentials(creds), nil
}

// Connect builds a client and logs in. When the secrets backend supplied the
// credentials and the server rejects them, the cached secret is dropped and the
// login is tried once more with a fresh read, so a rotated secret is picked up.
func (s *Session) Connect(ctx context.Context, timeout time.Duration, opts ...erclient.Option) (*erclient.Client, *config.Config, error) {
	c, cfg, err := s.connect(ctx, timeout, opts)
	if err == nil || s.resolver == nil || !erclient.IsKind(err, erclient.KindBadCredentials) {
		return c, cfg, err
	}

	s.logger.Warn("bootstrap.credentials_rejected",
		zap.String("profile", s.cfg.Profile),
		zap.String("secret", s.resolver.SecretName(s.cfg.Profile)),
		zap.Error(err))
	s.resolver.Forget(s.cfg.Profile)
	return s.connect(ctx, timeout, opts)
}

func (s *Session) connect(ctx context.Context, timeout time.Duration, opts []erclient.Option) (*erclient.Client, *config.Config, error) {
	cfg, err := s.Config(ctx)
	if err != nil {
		return nil, nil, err
	}
	c, err := Client(cfg, s.logger, opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := Login(ctx, c, timeout); err != nil {
		return nil, nil, err
	}
	return c, cfg, nil
}

// Profiles lists the profiles that have a secret in the backend.
func (s *Session) Profiles(ctx context.Context) ([]string, error) {
	if s.resolver == nil {
		return nil, ErrNoSecretsBackend
	}
	return s.resolver.DiscoverProfiles(ctx)
}

// Client builds a blocking client instrumented with Prometheus.
func Client(cfg *config.Config, logger *zap.Logger, opts ...erclient.Option) (*erclient.Client, error) {
	base := []erclient.Option{
		erclient.WithLogger(logger),
		erclient.WithObserver(metrics.ClientObserver{}),
	}
	c, err := erclient.New(cfg.ClientConfig(), append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{
		zap.String("base_url", cfg.BaseURL),
		zap.String("profile", cfg.Profile),
		zap.String("secrets_source", cfg.SecretsSource),
	}
	if cfg.Token != "" {
		fields = append(fields, zap.String("token", utils.MaskToken(cfg.Token)))
	}
	logger.Info("bootstrap.client_ready", fields...)
	return c, nil
}

// Login authenticates eagerly so bad credentials fail at startup.
func Login(ctx context.Context, c *erclient.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Login(ctx)
}
