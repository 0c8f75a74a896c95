package secrets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/erclient/internal/metrics"
	"github.com/Checker-Finance/erclient/pkg/config"
	pkgsecrets "github.com/Checker-Finance/erclient/pkg/secrets"
)

const service = "earthranger"

// ProfileResolver resolves EarthRanger credentials per profile from a secrets
// Provider, caching results locally. One profile is one site/account pairing.
//
// Secret naming convention: {env}/{profile}/earthranger
type ProfileResolver struct {
	logger   *zap.Logger
	env      string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[config.Credentials]
}

// NewProfileResolver constructs a resolver.
func NewProfileResolver(
	logger *zap.Logger,
	env string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[config.Credentials],
) *ProfileResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileResolver{
		logger:   logger,
		env:      env,
		provider: provider,
		cache:    cache,
	}
}

// SecretName builds the key for profile: {env}/{profile}/earthranger.
func (r *ProfileResolver) SecretName(profile string) string {
	return strings.ToLower(fmt.Sprintf("%s/%s/%s", r.env, profile, service))
}

// Resolve returns the credentials for profile, from cache when possible.
func (r *ProfileResolver) Resolve(ctx context.Context, profile string) (config.Credentials, error) {
	key := strings.ToLower(profile)
	if creds, ok := r.cache.Get(key); ok {
		metrics.IncCacheHit("hit")
		return creds, nil
	}
	metrics.IncCacheHit("miss")

	name := r.SecretName(profile)
	secretMap, err := r.provider.GetSecret(ctx, name)
	if err != nil {
		r.logger.Warn("secrets.fetch_failed",
			zap.String("key", name),
			zap.Error(err))
		return config.Credentials{}, fmt.Errorf("resolve credentials for profile %q: %w", profile, err)
	}

	creds, err := parseCredentials(secretMap)
	if err != nil {
		return config.Credentials{}, fmt.Errorf("parse secret %q: %w", name, err)
	}

	r.cache.Put(key, creds)
	r.logger.Info("secrets.profile_resolved", zap.String("profile", profile))
	return creds, nil
}

// Forget drops a cached profile so the next Resolve re-reads the backend.
func (r *ProfileResolver) Forget(profile string) {
	r.cache.Bust(strings.ToLower(profile))
}

// DiscoverProfiles lists profiles with a secret under "{env}/" ending in "/earthranger".
func (r *ProfileResolver) DiscoverProfiles(ctx context.Context) ([]string, error) {
	prefix := strings.ToLower(r.env) + "/"
	suffix := "/" + service

	names, err := r.provider.ListSecrets(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("discover profiles: %w", err)
	}

	var profiles []string
	for _, name := range names {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, prefix) || !strings.HasSuffix(lower, suffix) {
			continue
		}
		p := strings.TrimSuffix(strings.TrimPrefix(lower, prefix), suffix)
		if p != "" && !strings.Contains(p, "/") {
			profiles = append(profiles, p)
		}
	}

	r.logger.Info("secrets.profiles_discovered",
		zap.Int("count", len(profiles)),
		zap.Strings("profiles", profiles),
	)
	return profiles, nil
}

// parseCredentials requires either a token or a username/password pair.
func parseCredentials(m map[string]string) (config.Credentials, error) {
	c := config.Credentials{
		BaseURL:  m["base_url"],
		TokenURL: m["token_url"],
		ClientID: m["client_id"],
		Username: m["username"],
		Password: m["password"],
		Token:    m["token"],
	}
	if c.Token == "" && (c.Username == "" || c.Password == "") {
		return c, fmt.Errorf("secret needs token or username and password")
	}
	return c, nil
}
