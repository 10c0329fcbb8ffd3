package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantID identifies a tenant. The same ID may exist across multiple
// environments; a tenant is uniquely identified by (ID, Env).
type TenantID = uuid.UUID

// Tenant is an isolated deployment unit: one database, one storage
// bucket, one search index, one secret. Immutable after creation except
// through explicit tenant migration.
type Tenant struct {
	ID   TenantID
	Env  string
	Name string

	// DBName is the name of the tenant's dedicated database.
	DBName string

	// Exactly one of DBSecretName or DBIAMUserName must be set. Both may
	// be set; the secret is preferred at read time (see ResolveDBAuth).
	DBSecretName  *string
	DBIAMUserName *string

	StorageBucketName string
	SearchIndexName   string
	EventQueueURL     *string
}

// DBAuthMode describes which authentication method a tenant's pool should
// use when connecting to its database.
type DBAuthMode int

const (
	// DBAuthUnset indicates neither auth field is populated; an invalid
	// tenant configuration.
	DBAuthUnset DBAuthMode = iota
	// DBAuthSecret indicates a secrets-manager-backed static credential.
	DBAuthSecret
	// DBAuthIAM indicates a short-lived identity-derived token.
	DBAuthIAM
)

// ResolveDBAuth picks the auth mode to use for this tenant, preferring the
// secret over IAM when both are present.
func (t *Tenant) ResolveDBAuth() (mode DBAuthMode, name string) {
	switch {
	case t.DBSecretName != nil:
		return DBAuthSecret, *t.DBSecretName
	case t.DBIAMUserName != nil:
		return DBAuthIAM, *t.DBIAMUserName
	default:
		return DBAuthUnset, ""
	}
}

// CreateTenant is the input for creating a new tenant row.
type CreateTenant struct {
	ID                TenantID
	Env               string
	Name              string
	DBName            string
	DBSecretName      *string
	DBIAMUserName     *string
	StorageBucketName string
	SearchIndexName   string
	EventQueueURL     *string
}

// TenantMigration records that a named migration has been applied for a
// tenant in a given environment; it is the idempotency key for both
// database schema migrations and search-index schema migrations.
type TenantMigration struct {
	TenantID  TenantID
	Env       string
	Name      string
	AppliedAt time.Time
}

// CreateTenantMigration is the input for recording an applied migration.
type CreateTenantMigration struct {
	TenantID  TenantID
	Env       string
	Name      string
	AppliedAt time.Time
}
