package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ER_BASE_URL", "")
	t.Setenv("SYNC_INTERVAL", "")

	cfg := Load("er-sync")
	assert.Equal(t, "er-sync", cfg.ServiceName)
	assert.Equal(t, "https://sandbox.pamdas.org", cfg.BaseURL)
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval)
	assert.Equal(t, "env", cfg.SecretsSource)
	assert.Equal(t, 5, cfg.RetryAttempts)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ER_BASE_URL", "https://site.pamdas.org")
	t.Setenv("ER_API_VERSION", "v2")
	t.Setenv("ER_RATE_RPS", "2.5")
	t.Setenv("ER_CIRCUIT_BREAKER", "true")
	t.Setenv("SYNC_INTERVAL", "90")
	t.Setenv("SYNC_STATES", "new, active,,resolved")
	t.Setenv("PUBLISHER", "amqp")

	cfg := Load("er-sync")
	assert.Equal(t, "https://site.pamdas.org", cfg.BaseURL)
	assert.Equal(t, 2.5, cfg.RateRPS)
	assert.True(t, cfg.CircuitBreaker)
	assert.Equal(t, 90*time.Second, cfg.SyncInterval, "bare integers are seconds")
	assert.Equal(t, []string{"new", "active", "resolved"}, cfg.SyncStates)
	assert.Equal(t, "amqp", cfg.Publisher)

	cc := cfg.ClientConfig()
	assert.Equal(t, "v2", cc.Version)
	assert.Equal(t, "https://site.pamdas.org", cc.BaseURL)
	assert.True(t, cc.CircuitBreaker)
}

func TestGetEnvHelpers_InvalidFallsBack(t *testing.T) {
	t.Setenv("X_INT", "ten")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_FLOAT", "1,5")
	t.Setenv("X_DUR", "soon")

	assert.Equal(t, 3, GetEnvInt("X_INT", 3))
	assert.True(t, GetEnvBool("X_BOOL", true))
	assert.Equal(t, 1.0, GetEnvFloat("X_FLOAT", 1))
	assert.Equal(t, time.Second, GetEnvDuration("X_DUR", time.Second))
	assert.Equal(t, []string{"a"}, GetEnvList("X_UNSET_LIST", []string{"a"}))
}

func TestWithCredentials_OverlaysNonEmpty(t *testing.T) {
	base := &Config{BaseURL: "https://a", Username: "env-user", ClientID: "das_web_client"}
	out := base.WithCredentials(Credentials{Username: "aws-user", Password: "pw"})

	assert.Equal(t, "aws-user", out.Username)
	assert.Equal(t, "pw", out.Password)
	assert.Equal(t, "https://a", out.BaseURL)
	assert.Equal(t, "env-user", base.Username, "original untouched")
}
