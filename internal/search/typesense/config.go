// Package typesense implements the docbox search contract against a
// Typesense server, the document-search-service backend.
package typesense

import "context"

// Config configures how a Factory reaches a Typesense server and
// authenticates with it.
type Config struct {
	URL string

	// APIKey provides the API key directly.
	APIKey *string

	// APIKeySecretName names a secret holding the API key, resolved
	// through a secrets.Manager. Used when APIKey is nil.
	APIKeySecretName *string
}

// APIKeyProvider resolves the API key used to authenticate against
// Typesense, either a static value or one read from a secret store.
type APIKeyProvider interface {
	APIKey(ctx context.Context) (string, error)
}
