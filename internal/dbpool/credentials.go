package dbpool

import (
	"context"
	"encoding/json"

	"github.com/docbox-nz/docbox/internal/docerr"
)

// dbSecrets is the credential pair stored at secretName in the secret
// store, matching secrets.DBCredentials' JSON shape.
type dbSecrets struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// getCredentials returns the cached credential pair for secretName,
// loading and caching it from the secret store on a cache miss.
func (c *Cache) getCredentials(ctx context.Context, secretName string) (dbSecrets, error) {
	return c.credentialsCache.getOrCreate(ctx, secretName, func(ctx context.Context) (dbSecrets, error) {
		raw, err := c.secretsMgr.GetSecret(ctx, secretName)
		if err != nil {
			return dbSecrets{}, docerr.Dependency("failed to load database credentials", err)
		}
		var creds dbSecrets
		if err := json.Unmarshal([]byte(raw), &creds); err != nil {
			return dbSecrets{}, docerr.Dependency("malformed database credentials secret", err)
		}
		return creds, nil
	})
}

// dropCredentials evicts secretName from the credentials cache, used when
// a connection attempt fails in case the cached password is stale.
func (c *Cache) dropCredentials(secretName string) {
	c.credentialsCache.remove(secretName)
}
