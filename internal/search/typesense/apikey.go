package typesense

import (
	"context"

	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/secrets"
)

// staticAPIKeyProvider returns a fixed, config-supplied API key.
type staticAPIKeyProvider struct {
	key string
}

func (p staticAPIKeyProvider) APIKey(ctx context.Context) (string, error) {
	return p.key, nil
}

// secretAPIKeyProvider resolves the API key from a secrets.Manager on
// every call, so a rotated secret takes effect without a restart.
type secretAPIKeyProvider struct {
	secrets    secrets.Manager
	secretName string
}

func (p secretAPIKeyProvider) APIKey(ctx context.Context) (string, error) {
	value, err := p.secrets.GetSecret(ctx, p.secretName)
	if err != nil {
		return "", docerr.Dependency("failed to resolve typesense api key", err)
	}
	return value, nil
}

// NewAPIKeyProvider builds the provider named by config: a static key
// when one is set directly, otherwise a secret lookup by name.
func NewAPIKeyProvider(secretsMgr secrets.Manager, config Config) (APIKeyProvider, error) {
	if config.APIKey != nil {
		return staticAPIKeyProvider{key: *config.APIKey}, nil
	}
	if config.APIKeySecretName != nil {
		return secretAPIKeyProvider{secrets: secretsMgr, secretName: *config.APIKeySecretName}, nil
	}
	return nil, docerr.InvalidInput("typesense search config is missing an api key")
}
