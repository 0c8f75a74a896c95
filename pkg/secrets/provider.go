package secrets

import "context"

// Provider is a secrets backend. Secrets are flat string maps.
type Provider interface {
	// GetSecret retrieves a secret by key/path.
	GetSecret(ctx context.Context, key string) (map[string]string, error)

	// ListSecrets returns the names of all secrets whose name matches prefix.
	ListSecrets(ctx context.Context, prefix string) ([]string, error)
}
