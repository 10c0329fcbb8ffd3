// Package dbpool manages per-tenant Postgres connection pools behind a
// capacity-bounded, TTL-expiring cache, along with the credentials (either
// secrets-manager passwords or short-lived IAM tokens) each pool connects
// with.
package dbpool

import "time"

// RootDatabaseName is the name of docbox's own control-plane database,
// distinct from every tenant database.
const RootDatabaseName = "docbox"

// RootDatabaseRole is the IAM database role used to connect to the root
// database when root IAM authentication is enabled.
const RootDatabaseRole = "docbox"

// Config controls pool sizing, timeouts, and the two cache layers (pools
// and credentials). Zero-valued fields fall back to the defaults applied
// in NewCache.
type Config struct {
	Host string
	Port uint16

	// RootSecretName names the secret holding the root database's
	// credentials. Exactly one of RootSecretName/RootIAM should be set.
	RootSecretName *string
	RootIAM        bool

	// MaxConnections bounds each tenant pool; MaxConnectionsRoot bounds
	// the root pool, which serves fewer, shorter queries.
	MaxConnections     uint32
	MaxConnectionsRoot uint32

	AcquireTimeout time.Duration
	IdleTimeout    time.Duration

	// PoolTTL is the maximum time a pool may live in the cache before it
	// is closed and evicted regardless of use.
	PoolTTL time.Duration
	// PoolIdleTTL closes a pool after this long without being requested.
	PoolIdleTTL time.Duration
	// PoolCacheCapacity bounds the number of pools held at once; the
	// least-frequently-used pool is evicted past this limit.
	PoolCacheCapacity int

	// CredentialsTTL bounds how long a loaded secret is reused before a
	// fresh read from the secret store.
	CredentialsTTL      time.Duration
	CredentialsCapacity int
}

// ApplyDefaults fills unset fields with the values docbox ships with,
// mirroring the original system's environment-variable defaults.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = 10
	}
	if c.MaxConnectionsRoot == 0 {
		c.MaxConnectionsRoot = 2
	}
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 10 * time.Minute
	}
	if c.PoolTTL == 0 {
		c.PoolTTL = 48 * time.Hour
	}
	// IAM tokens are only valid for 15 minutes; keep pools from
	// outliving them in the cache by a wide margin.
	if c.RootIAM && c.PoolTTL > iamPoolTTLCeiling {
		c.PoolTTL = iamPoolTTLCeiling
	}
	if c.PoolIdleTTL == 0 {
		c.PoolIdleTTL = 48 * time.Hour
	}
	if c.PoolCacheCapacity == 0 {
		c.PoolCacheCapacity = 50
	}
	if c.CredentialsTTL == 0 {
		c.CredentialsTTL = 12 * time.Hour
	}
	if c.CredentialsCapacity == 0 {
		c.CredentialsCapacity = 50
	}
}
