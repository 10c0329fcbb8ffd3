// Package db is docbox's entity layer: schema bootstrap and CRUD queries
// against the root database (tenants, tenant_migrations) and each
// tenant's own database (folders, files, links, generated files, edit
// history, presigned upload tasks, users).
package db

import (
	"context"
	_ "embed"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docbox-nz/docbox/internal/docerr"
)

//go:embed schema/root.sql
var rootSchema string

//go:embed schema/tenant.sql
var tenantSchema string

// InitRootSchema creates the root database's tables if they don't
// already exist. Safe to call on every startup.
func InitRootSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, rootSchema); err != nil {
		return docerr.Dependency("failed to initialize root schema", err)
	}
	return nil
}

// InitTenantSchema creates a freshly-provisioned tenant's tables. Called
// once per tenant, inside the provisioner's tenant-database transaction.
func InitTenantSchema(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, tenantSchema); err != nil {
		return docerr.Dependency("failed to initialize tenant schema", err)
	}
	return nil
}

// WithTx runs fn inside a transaction on pool, committing on success and
// rolling back on error or panic.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return docerr.Dependency("failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return docerr.Dependency("failed to commit transaction", err)
	}
	return nil
}

// notFoundIf maps pgx.ErrNoRows to a docerr.NotFound, passing any other
// error through wrapped as a Dependency failure.
func notFoundIf(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return docerr.NotFound(message)
	}
	return docerr.Dependency(message, err)
}

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every query
// function below can run either against a pool directly or inside a
// caller-managed transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
