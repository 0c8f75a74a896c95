package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// EnvProvider reads secrets from environment variables. A key such as
// "dev/default/earthranger" maps to the prefix DEV_DEFAULT_EARTHRANGER_ and every
// variable under it becomes a lower-cased field: DEV_DEFAULT_EARTHRANGER_USERNAME -> "username".
type EnvProvider struct {
	environ func() []string
}

func NewEnvProvider() *EnvProvider {
	return &EnvProvider{environ: os.Environ}
}

func envPrefix(key string) string {
	r := strings.NewReplacer("/", "_", "-", "_", ".", "_")
	return strings.ToUpper(r.Replace(key)) + "_"
}

func (p *EnvProvider) GetSecret(_ context.Context, key string) (map[string]string, error) {
	prefix := envPrefix(key)
	out := map[string]string{}
	for _, kv := range p.environ() {
		name, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) || val == "" {
			continue
		}
		out[strings.ToLower(strings.TrimPrefix(name, prefix))] = val
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no environment variables found for secret [%s] (prefix %s)", key, prefix)
	}
	return out, nil
}

// ListSecrets is unsupported: variable names do not preserve the secret path separators.
func (p *EnvProvider) ListSecrets(context.Context, string) ([]string, error) {
	return nil, errors.New("env provider cannot enumerate secrets")
}
