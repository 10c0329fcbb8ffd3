package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
)

// CreateTenant inserts a new tenant row within tx, the provisioner's
// open root-database transaction.
func CreateTenant(ctx context.Context, tx pgx.Tx, input models.CreateTenant) error {
	const query = `
INSERT INTO tenants (id, env, name, db_name, db_secret_name, db_iam_user_name, storage_bucket_name, search_index_name, event_queue_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := tx.Exec(ctx, query,
		input.ID, input.Env, input.Name, input.DBName, input.DBSecretName, input.DBIAMUserName,
		input.StorageBucketName, input.SearchIndexName, input.EventQueueURL)
	if err != nil {
		if isUniqueViolation(err) {
			return docerr.Conflict("a tenant with one of these identifiers already exists")
		}
		return docerr.Dependency("failed to create tenant", err)
	}
	return nil
}

// GetTenant resolves one tenant by id and env.
func GetTenant(ctx context.Context, q Querier, id models.TenantID, env string) (*models.Tenant, error) {
	const query = `
SELECT id, env, name, db_name, db_secret_name, db_iam_user_name, storage_bucket_name, search_index_name, event_queue_url
FROM tenants WHERE id = $1 AND env = $2`
	var t models.Tenant
	err := q.QueryRow(ctx, query, id, env).Scan(
		&t.ID, &t.Env, &t.Name, &t.DBName, &t.DBSecretName, &t.DBIAMUserName,
		&t.StorageBucketName, &t.SearchIndexName, &t.EventQueueURL)
	if err != nil {
		return nil, notFoundIf(err, "tenant not found")
	}
	return &t, nil
}

// ListTenants returns every tenant in env.
func ListTenants(ctx context.Context, q Querier, env string) ([]models.Tenant, error) {
	const query = `
SELECT id, env, name, db_name, db_secret_name, db_iam_user_name, storage_bucket_name, search_index_name, event_queue_url
FROM tenants WHERE env = $1 ORDER BY name`
	rows, err := q.Query(ctx, query, env)
	if err != nil {
		return nil, docerr.Dependency("failed to list tenants", err)
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Env, &t.Name, &t.DBName, &t.DBSecretName, &t.DBIAMUserName,
			&t.StorageBucketName, &t.SearchIndexName, &t.EventQueueURL); err != nil {
			return nil, docerr.Dependency("failed to read tenant row", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// DeleteTenant removes a tenant's root row. The caller is responsible
// for tearing down the tenant's database, storage bucket, and search
// index beforehand.
func DeleteTenant(ctx context.Context, tx pgx.Tx, id models.TenantID, env string) error {
	_, err := tx.Exec(ctx, `DELETE FROM tenants WHERE id = $1 AND env = $2`, id, env)
	if err != nil {
		return docerr.Dependency("failed to delete tenant", err)
	}
	return nil
}

// CreateTenantMigration records that a migration has been applied.
func CreateTenantMigration(ctx context.Context, tx pgx.Tx, input models.CreateTenantMigration) error {
	const query = `
INSERT INTO tenant_migrations (tenant_id, env, name, applied_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (tenant_id, env, name) DO NOTHING`
	_, err := tx.Exec(ctx, query, input.TenantID, input.Env, input.Name, input.AppliedAt)
	if err != nil {
		return docerr.Dependency("failed to record tenant migration", err)
	}
	return nil
}

// ListTenantMigrations returns every migration recorded as applied for
// one tenant, database and search-index migrations alike (they share
// the same idempotency ledger).
func ListTenantMigrations(ctx context.Context, q Querier, id models.TenantID, env string) ([]models.TenantMigration, error) {
	const query = `SELECT tenant_id, env, name, applied_at FROM tenant_migrations WHERE tenant_id = $1 AND env = $2`
	rows, err := q.Query(ctx, query, id, env)
	if err != nil {
		return nil, docerr.Dependency("failed to list tenant migrations", err)
	}
	defer rows.Close()

	var migrations []models.TenantMigration
	for rows.Next() {
		var m models.TenantMigration
		if err := rows.Scan(&m.TenantID, &m.Env, &m.Name, &m.AppliedAt); err != nil {
			return nil, docerr.Dependency("failed to read tenant migration row", err)
		}
		migrations = append(migrations, m)
	}
	return migrations, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
