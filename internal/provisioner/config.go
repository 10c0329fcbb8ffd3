package provisioner

import (
	"github.com/docbox-nz/docbox/internal/models"
)

// CreateTenantConfig is the request to provision a brand-new tenant: one
// database, one restricted role, one storage bucket, one search index,
// recorded as a single tenant row in the root database.
type CreateTenantConfig struct {
	ID   models.TenantID
	Env  string
	Name string

	// DBName names the tenant's dedicated Postgres database.
	DBName string
	// DBSecretName names the secret the restricted role's credentials
	// are stored under.
	DBSecretName string
	// DBRoleName is the restricted Postgres role created for this
	// tenant and granted access only to its own database.
	DBRoleName string

	StorageBucketName  string
	StorageCORSOrigins []string
	// StorageQueueARN, if set, wires bucket object-created notifications
	// to the given queue for presigned-upload completion callbacks.
	StorageQueueARN *string

	SearchIndexName string

	EventQueueURL *string
}
