package dbpool

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/secrets"
)

// Cache owns every live database pool docbox holds: the root control-plane
// pool and one pool per tenant, each behind an LFU+TTL cache keyed by
// authentication identity so that a tenant whose secret rotates gets a
// fresh pool rather than reusing stale credentials.
type Cache struct {
	log    *zap.Logger
	config Config

	credsProvider aws.CredentialsProvider
	awsRegion     string
	secretsMgr    secrets.Manager

	pools            *lfuCache[*pgxpool.Pool]
	credentialsCache *lfuCache[dbSecrets]
}

// New builds a Cache. credsProvider/awsRegion may be zero-valued when
// RootIAM and no tenant uses IAM auth; they are only consulted when
// signing an RDS token.
func New(log *zap.Logger, config Config, secretsMgr secrets.Manager, credsProvider aws.CredentialsProvider, awsRegion string) *Cache {
	config.ApplyDefaults()

	c := &Cache{
		log:           log,
		config:        config,
		credsProvider: credsProvider,
		awsRegion:     awsRegion,
		secretsMgr:    secretsMgr,
	}

	c.pools = newLFUCache[*pgxpool.Pool](config.PoolCacheCapacity, config.PoolTTL, config.PoolIdleTTL,
		func(key string, pool *pgxpool.Pool) {
			log.Debug("database pool is no longer in use, closing", zap.String("cache_key", key))
			pool.Close()
		}, config.PoolTTL/4+1)

	c.credentialsCache = newLFUCache[dbSecrets](config.CredentialsCapacity, 0, config.CredentialsTTL, nil, config.CredentialsTTL/4+1)

	return c
}

// GetRootPool returns the pool for docbox's own control-plane database,
// using whichever auth mode the config selects.
func (c *Cache) GetRootPool(ctx context.Context) (*pgxpool.Pool, error) {
	switch {
	case c.config.RootIAM:
		return c.getPoolIAM(ctx, RootDatabaseName, RootDatabaseRole)
	case c.config.RootSecretName != nil:
		return c.getPool(ctx, RootDatabaseName, *c.config.RootSecretName)
	default:
		return nil, docerr.InvalidInput("root database has neither a secret nor IAM configured")
	}
}

// GetTenantPool returns the pool for a tenant's database, preferring the
// secret credential when both auth modes are configured for it.
func (c *Cache) GetTenantPool(ctx context.Context, tenant *models.Tenant) (*pgxpool.Pool, error) {
	mode, name := tenant.ResolveDBAuth()
	switch mode {
	case models.DBAuthSecret:
		return c.getPool(ctx, tenant.DBName, name)
	case models.DBAuthIAM:
		return c.getPoolIAM(ctx, tenant.DBName, name)
	default:
		return nil, docerr.InvalidInput("tenant has neither a secret nor IAM configured")
	}
}

// AdminPool returns a pool connected to the "postgres" maintenance
// database, used only by the tenant provisioner to run CREATE DATABASE
// and CREATE ROLE statements that cannot run inside a tenant's own
// database.
func (c *Cache) AdminPool(ctx context.Context) (*pgxpool.Pool, error) {
	switch {
	case c.config.RootIAM:
		return c.getPoolIAM(ctx, "postgres", RootDatabaseRole)
	case c.config.RootSecretName != nil:
		return c.getPool(ctx, "postgres", *c.config.RootSecretName)
	default:
		return nil, docerr.InvalidInput("root database has neither a secret nor IAM configured")
	}
}

// CloseTenantPool closes and evicts the cached pool for a tenant, if one
// is currently open.
func (c *Cache) CloseTenantPool(tenant *models.Tenant) {
	c.pools.remove(tenantCacheKey(tenant))
}

// Flush closes and evicts every cached pool and credential.
func (c *Cache) Flush() {
	c.pools.flush()
	c.credentialsCache.flush()
}

// CloseAll closes every cached pool and flushes both caches. Intended for
// process shutdown.
func (c *Cache) CloseAll() {
	for _, pool := range c.pools.all() {
		pool.Close()
	}
	c.Flush()
}

// Close stops the cache's background janitors without closing pools;
// used in tests that manage pool lifetime themselves.
func (c *Cache) Close() {
	c.pools.close()
	c.credentialsCache.close()
}

func tenantCacheKey(tenant *models.Tenant) string {
	switch {
	case tenant.DBSecretName != nil:
		return fmt.Sprintf("secret-%s-%s", tenant.DBName, *tenant.DBSecretName)
	case tenant.DBIAMUserName != nil:
		return fmt.Sprintf("user-%s-%s", tenant.DBName, *tenant.DBIAMUserName)
	default:
		return "db-" + tenant.DBName
	}
}

func (c *Cache) getPool(ctx context.Context, dbName, secretName string) (*pgxpool.Pool, error) {
	cacheKey := fmt.Sprintf("secret-%s-%s", dbName, secretName)
	return c.pools.getOrCreate(ctx, cacheKey, func(ctx context.Context) (*pgxpool.Pool, error) {
		c.log.Debug("creating db pool connection", zap.String("db_name", dbName), zap.String("secret_name", secretName))
		pool, err := c.createPool(ctx, dbName, secretName)
		if err != nil {
			// Drop the cached credential in case it was the cause.
			c.dropCredentials(secretName)
			return nil, err
		}
		return pool, nil
	})
}

func (c *Cache) getPoolIAM(ctx context.Context, dbName, dbRoleName string) (*pgxpool.Pool, error) {
	cacheKey := fmt.Sprintf("user-%s-%s", dbName, dbRoleName)
	return c.pools.getOrCreate(ctx, cacheKey, func(ctx context.Context) (*pgxpool.Pool, error) {
		c.log.Debug("creating db pool connection (iam)", zap.String("db_name", dbName), zap.String("db_role_name", dbRoleName))
		return c.createPoolIAM(ctx, dbName, dbRoleName)
	})
}

func (c *Cache) maxConnections(dbName string) int32 {
	if dbName == RootDatabaseName {
		return int32(c.config.MaxConnectionsRoot)
	}
	return int32(c.config.MaxConnections)
}

func (c *Cache) createPool(ctx context.Context, dbName, secretName string) (*pgxpool.Pool, error) {
	creds, err := c.getCredentials(ctx, secretName)
	if err != nil {
		return nil, err
	}

	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		creds.Username, creds.Password, c.config.Host, c.config.Port, dbName)

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, docerr.Dependency("failed to parse database connection options", err)
	}
	cfg.MaxConns = c.maxConnections(dbName)
	cfg.MaxConnIdleTime = c.config.IdleTimeout
	cfg.ConnConfig.ConnectTimeout = c.config.AcquireTimeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, docerr.Dependency("failed to connect database pool", err)
	}
	return pool, nil
}

func (c *Cache) createPoolIAM(ctx context.Context, dbName, dbRoleName string) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf("postgres://%s@%s:%d/%s", dbRoleName, c.config.Host, c.config.Port, dbName)
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, docerr.Dependency("failed to parse database connection options", err)
	}
	cfg.MaxConns = c.maxConnections(dbName)
	cfg.MaxConnIdleTime = c.config.IdleTimeout
	cfg.ConnConfig.ConnectTimeout = c.config.AcquireTimeout

	token, err := signRDSAuthToken(ctx, c.credsProvider, c.awsRegion, c.config.Host, c.config.Port, dbRoleName)
	if err != nil {
		return nil, err
	}
	cfg.ConnConfig.Password = token

	// Sign a fresh token before every physical connection pgx opens. A
	// token is only valid for 15 minutes, so re-signing per connect plays
	// the role the upstream system's periodic background refresh played
	// for its longer-lived sqlx pools, without needing a separate
	// maintenance goroutine here.
	cfg.BeforeConnect = func(ctx context.Context, connConfig *pgx.ConnConfig) error {
		token, err := signRDSAuthToken(ctx, c.credsProvider, c.awsRegion, c.config.Host, c.config.Port, dbRoleName)
		if err != nil {
			return err
		}
		connConfig.Password = token
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, docerr.Dependency("failed to connect database pool", err)
	}
	return pool, nil
}
