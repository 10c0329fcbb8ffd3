// Package provisioner creates and tears down tenants: the dedicated
// Postgres database and restricted role, the storage bucket, and the
// search index, with every step guarded so a failure partway through
// rolls back everything already created.
package provisioner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/db"
	"github.com/docbox-nz/docbox/internal/dbpool"
	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/search"
	"github.com/docbox-nz/docbox/internal/secrets"
	"github.com/docbox-nz/docbox/internal/storage"
)

// passwordLength matches the original implementation's fixed-length
// restricted-role password.
const passwordLength = 30

// Provisioner owns the cross-cutting resources needed to create and
// destroy tenants: the pool cache (for the admin/root/tenant
// connections), the secret store, and the storage/search factories.
type Provisioner struct {
	Pools          *dbpool.Cache
	Secrets        secrets.Manager
	StorageFactory storage.BucketProvider
	SearchFactory  *search.Factory
	Logger         *zap.Logger
}

func (p *Provisioner) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return zap.NewNop()
}

// CreateTenant provisions every resource a tenant needs and records it
// as a single row in the root database, in the order: database, role,
// secret, root tenant row, tenant schema, storage bucket, search index
// and its migrations. Each step is protected by a rollback guard; the
// guards only disarm once both transactions have committed.
func (p *Provisioner) CreateTenant(ctx context.Context, cfg CreateTenantConfig) (*models.Tenant, error) {
	var g guards
	succeeded := false
	defer func() {
		if !succeeded {
			g.fireAll()
		}
	}()

	admin, err := p.Pools.AdminPool(ctx)
	if err != nil {
		return nil, err
	}

	if err := createDatabase(ctx, admin, cfg.DBName); err != nil {
		return nil, err
	}
	g.add(func() {
		if err := dropDatabase(context.Background(), admin, cfg.DBName); err != nil {
			p.logger().Error("failed to roll back created tenant database", zap.Error(err))
		}
	})

	password, err := randomPassword(passwordLength)
	if err != nil {
		return nil, docerr.Dependency("failed to generate role password", err)
	}
	if err := createRestrictedRole(ctx, admin, cfg.DBRoleName, password, cfg.DBName); err != nil {
		return nil, err
	}
	g.add(func() {
		if err := dropRole(context.Background(), admin, cfg.DBRoleName); err != nil {
			p.logger().Error("failed to roll back created tenant role", zap.Error(err))
		}
	})

	secretValue := fmt.Sprintf(`{"username":%q,"password":%q}`, cfg.DBRoleName, password)
	if err := p.Secrets.SetSecret(ctx, cfg.DBSecretName, secretValue); err != nil {
		return nil, docerr.Dependency("failed to store tenant database secret", err)
	}

	rootPool, err := p.Pools.GetRootPool(ctx)
	if err != nil {
		return nil, err
	}
	rootTx, err := rootPool.Begin(ctx)
	if err != nil {
		return nil, docerr.Dependency("failed to begin root transaction", err)
	}
	defer func() { _ = rootTx.Rollback(ctx) }()

	tenant := models.Tenant{
		ID:                cfg.ID,
		Env:               cfg.Env,
		Name:              cfg.Name,
		DBName:            cfg.DBName,
		DBSecretName:      &cfg.DBSecretName,
		StorageBucketName: cfg.StorageBucketName,
		SearchIndexName:   cfg.SearchIndexName,
		EventQueueURL:     cfg.EventQueueURL,
	}

	if err := db.CreateTenant(ctx, rootTx, models.CreateTenant{
		ID:                cfg.ID,
		Env:               cfg.Env,
		Name:              cfg.Name,
		DBName:            cfg.DBName,
		DBSecretName:      &cfg.DBSecretName,
		StorageBucketName: cfg.StorageBucketName,
		SearchIndexName:   cfg.SearchIndexName,
		EventQueueURL:     cfg.EventQueueURL,
	}); err != nil {
		return nil, err
	}

	tenantPool, err := p.Pools.GetTenantPool(ctx, &tenant)
	if err != nil {
		return nil, err
	}
	tenantTx, err := tenantPool.Begin(ctx)
	if err != nil {
		return nil, docerr.Dependency("failed to begin tenant transaction", err)
	}
	defer func() { _ = tenantTx.Rollback(ctx) }()

	if err := db.InitTenantSchema(ctx, tenantTx); err != nil {
		return nil, err
	}

	store := p.StorageFactory.ForBucket(cfg.StorageBucketName)
	if err := store.CreateBucket(ctx); err != nil {
		return nil, docerr.Dependency("failed to create tenant storage bucket", err)
	}
	g.add(func() {
		if err := store.DeleteBucket(context.Background()); err != nil {
			p.logger().Error("failed to roll back created tenant storage bucket", zap.Error(err))
		}
	})

	if cfg.StorageQueueARN != nil {
		if err := store.AddBucketNotifications(ctx, *cfg.StorageQueueARN); err != nil {
			return nil, docerr.Dependency("failed to configure tenant bucket notifications", err)
		}
	}
	if len(cfg.StorageCORSOrigins) > 0 {
		if err := store.SetBucketCORSOrigins(ctx, cfg.StorageCORSOrigins); err != nil {
			return nil, docerr.Dependency("failed to configure tenant bucket cors", err)
		}
	}

	index, err := p.SearchFactory.ForTenant(&tenant)
	if err != nil {
		return nil, err
	}
	if err := index.CreateIndex(ctx); err != nil {
		return nil, docerr.Dependency("failed to create tenant search index", err)
	}
	g.add(func() {
		if err := index.DeleteIndex(context.Background()); err != nil {
			p.logger().Error("failed to roll back created tenant search index", zap.Error(err))
		}
	})

	if err := p.applySearchMigrations(ctx, rootTx, &tenant, index); err != nil {
		return nil, err
	}

	if err := tenantTx.Commit(ctx); err != nil {
		return nil, docerr.Dependency("failed to commit tenant transaction", err)
	}
	if err := rootTx.Commit(ctx); err != nil {
		return nil, docerr.Dependency("failed to commit root transaction", err)
	}

	succeeded = true
	g.disarmAll()
	return &tenant, nil
}

// applySearchMigrations applies every migration the active search
// backend reports as pending for a freshly-created tenant, recording
// each as applied in the root transaction so a later rebuild or restart
// does not reapply it.
func (p *Provisioner) applySearchMigrations(ctx context.Context, rootTx pgx.Tx, tenant *models.Tenant, index search.Index) error {
	pending := index.GetPendingMigrations(nil)
	for _, m := range pending {
		if err := index.ApplyMigration(ctx, m); err != nil {
			return docerr.Dependency(fmt.Sprintf("failed to apply search migration %q", m.Name), err)
		}
		if err := db.CreateTenantMigration(ctx, rootTx, models.CreateTenantMigration{
			TenantID:  tenant.ID,
			Env:       tenant.Env,
			Name:      m.Name,
			AppliedAt: time.Now(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func createDatabase(ctx context.Context, pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}, name string) error {
	_, err := pool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", pgx.Identifier{name}.Sanitize()))
	if err != nil && !isCode(err, "42P04") { // duplicate_database
		return docerr.Dependency("failed to create tenant database", err)
	}
	return nil
}

func dropDatabase(ctx context.Context, pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}, name string) error {
	_, err := pool.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", pgx.Identifier{name}.Sanitize()))
	return err
}

func createRestrictedRole(ctx context.Context, pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}, roleName, password, dbName string) error {
	stmt := fmt.Sprintf("CREATE ROLE %s WITH LOGIN PASSWORD %s",
		pgx.Identifier{roleName}.Sanitize(), quoteLiteral(password))
	if _, err := pool.Exec(ctx, stmt); err != nil && !isCode(err, "42710") { // duplicate_object
		return docerr.Dependency("failed to create tenant database role", err)
	}

	grant := fmt.Sprintf("GRANT ALL PRIVILEGES ON DATABASE %s TO %s",
		pgx.Identifier{dbName}.Sanitize(), pgx.Identifier{roleName}.Sanitize())
	if _, err := pool.Exec(ctx, grant); err != nil {
		return docerr.Dependency("failed to grant tenant database privileges", err)
	}
	return nil
}

func dropRole(ctx context.Context, pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}, roleName string) error {
	_, err := pool.Exec(ctx, fmt.Sprintf("DROP ROLE IF EXISTS %s", pgx.Identifier{roleName}.Sanitize()))
	return err
}

// quoteLiteral escapes a string for embedding as a SQL string literal.
// CREATE ROLE's PASSWORD clause is DDL and cannot be parameterized, so
// the password must be embedded directly; doubling embedded quotes is
// the standard Postgres escaping rule for a literal with no backslash
// escapes enabled.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// DeleteTenant tears down every resource a tenant owns: its search
// index, storage bucket, database secret, restricted role, dedicated
// database, and finally its root row. Each step is best-effort; a
// failure is logged and teardown continues so one unreachable backend
// does not strand the rest of a tenant's resources.
func (p *Provisioner) DeleteTenant(ctx context.Context, tenant *models.Tenant) error {
	if index, err := p.SearchFactory.ForTenant(tenant); err != nil {
		p.logger().Error("failed to resolve tenant search index for deletion", zap.Error(err))
	} else if err := index.DeleteIndex(ctx); err != nil {
		p.logger().Error("failed to delete tenant search index", zap.Error(err))
	}

	store := p.StorageFactory.ForBucket(tenant.StorageBucketName)
	if err := store.DeleteBucket(ctx); err != nil {
		p.logger().Error("failed to delete tenant storage bucket", zap.Error(err))
	}

	roleName := tenant.DBIAMUserName
	if tenant.DBSecretName != nil {
		if username, err := p.secretRoleName(ctx, *tenant.DBSecretName); err != nil {
			p.logger().Error("failed to read tenant database secret before deletion", zap.Error(err))
		} else {
			roleName = &username
		}
		if err := p.Secrets.DeleteSecret(ctx, *tenant.DBSecretName, true); err != nil {
			p.logger().Error("failed to delete tenant database secret", zap.Error(err))
		}
	}

	admin, err := p.Pools.AdminPool(ctx)
	if err != nil {
		return err
	}
	if roleName != nil {
		if err := dropRole(ctx, admin, *roleName); err != nil {
			p.logger().Error("failed to drop tenant database role", zap.Error(err))
		}
	}
	p.Pools.CloseTenantPool(tenant)
	if err := dropDatabase(ctx, admin, tenant.DBName); err != nil {
		p.logger().Error("failed to drop tenant database", zap.Error(err))
	}

	rootPool, err := p.Pools.GetRootPool(ctx)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, rootPool, func(tx pgx.Tx) error {
		return db.DeleteTenant(ctx, tx, tenant.ID, tenant.Env)
	})
}

// secretRoleName extracts the "username" field from a tenant database
// secret's JSON body, matching the {"username": "...", "password":
// "..."} shape every such secret is stored in.
func (p *Provisioner) secretRoleName(ctx context.Context, secretName string) (string, error) {
	value, err := p.Secrets.GetSecret(ctx, secretName)
	if err != nil {
		return "", err
	}
	var creds struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal([]byte(value), &creds); err != nil {
		return "", docerr.InvalidInput("tenant database secret is not valid JSON")
	}
	return creds.Username, nil
}

func isCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
