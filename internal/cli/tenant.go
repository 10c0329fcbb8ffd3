package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docbox-nz/docbox/internal/db"
	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/provisioner"
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage tenants",
}

var (
	tenantID         string
	tenantName       string
	tenantDBName     string
	tenantSecretName string
	tenantRoleName   string
	tenantBucket     string
	tenantIndex      string
	tenantQueueURL   string
	tenantCORS       []string
	tenantQueueARN   string
)

var tenantCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Provision a new tenant",
	Long: `Provision a new tenant: its dedicated database and restricted role, the
secret holding the role's credentials, its storage bucket, and its search
index. A failure partway through rolls every created resource back.`,
	RunE: runTenantCreate,
}

var tenantDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Tear down a tenant and every resource it owns",
	RunE:  runTenantDelete,
}

var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenants in the configured environment",
	RunE:  runTenantList,
}

func init() {
	tenantCreateCmd.Flags().StringVar(&tenantID, "id", "", "tenant id (random when omitted)")
	tenantCreateCmd.Flags().StringVar(&tenantName, "name", "", "display name")
	tenantCreateCmd.Flags().StringVar(&tenantDBName, "db-name", "", "dedicated database name")
	tenantCreateCmd.Flags().StringVar(&tenantSecretName, "secret-name", "", "secret name for the role credentials")
	tenantCreateCmd.Flags().StringVar(&tenantRoleName, "role-name", "", "restricted database role name")
	tenantCreateCmd.Flags().StringVar(&tenantBucket, "bucket", "", "storage bucket name")
	tenantCreateCmd.Flags().StringVar(&tenantIndex, "index", "", "search index name")
	tenantCreateCmd.Flags().StringVar(&tenantQueueURL, "queue-url", "", "event queue url (optional)")
	tenantCreateCmd.Flags().StringSliceVar(&tenantCORS, "cors-origin", nil, "allowed CORS origin for presigned uploads (repeatable)")
	tenantCreateCmd.Flags().StringVar(&tenantQueueARN, "notification-queue-arn", "", "queue ARN for bucket object-created notifications (optional)")
	for _, required := range []string{"name", "db-name", "secret-name", "role-name", "bucket", "index"} {
		_ = tenantCreateCmd.MarkFlagRequired(required)
	}

	tenantDeleteCmd.Flags().StringVar(&tenantID, "id", "", "tenant id")
	_ = tenantDeleteCmd.MarkFlagRequired("id")

	tenantCmd.AddCommand(tenantCreateCmd)
	tenantCmd.AddCommand(tenantDeleteCmd)
	tenantCmd.AddCommand(tenantListCmd)
}

func runTenantCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	id := uuid.New()
	if tenantID != "" {
		id, err = uuid.Parse(tenantID)
		if err != nil {
			return fmt.Errorf("invalid tenant id: %w", err)
		}
	}

	createCfg := provisioner.CreateTenantConfig{
		ID:                 id,
		Env:                cfg.Env,
		Name:               tenantName,
		DBName:             tenantDBName,
		DBSecretName:       tenantSecretName,
		DBRoleName:         tenantRoleName,
		StorageBucketName:  tenantBucket,
		SearchIndexName:    tenantIndex,
		StorageCORSOrigins: tenantCORS,
	}
	if tenantQueueURL != "" {
		createCfg.EventQueueURL = &tenantQueueURL
	}
	if tenantQueueARN != "" {
		createCfg.StorageQueueARN = &tenantQueueARN
	}

	tenant, err := e.prov.CreateTenant(ctx, createCfg)
	if err != nil {
		return err
	}

	cmd.Printf("created tenant %s (%s) in env %s\n", tenant.ID, tenant.Name, tenant.Env)
	return nil
}

func runTenantDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	tenant, err := resolveTenant(cmd, e, tenantID)
	if err != nil {
		return err
	}

	if err := e.prov.DeleteTenant(ctx, tenant); err != nil {
		return err
	}
	cmd.Printf("deleted tenant %s\n", tenant.ID)
	return nil
}

func runTenantList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	rootPool, err := e.pools.GetRootPool(ctx)
	if err != nil {
		return err
	}
	tenants, err := db.ListTenants(ctx, rootPool, cfg.Env)
	if err != nil {
		return err
	}

	for _, t := range tenants {
		cmd.Printf("%s  %-20s  db=%s bucket=%s index=%s\n",
			t.ID, t.Name, t.DBName, t.StorageBucketName, t.SearchIndexName)
	}
	cmd.Printf("%d tenant(s)\n", len(tenants))
	return nil
}

// resolveTenant loads the tenant row for rawID in the configured
// environment.
func resolveTenant(cmd *cobra.Command, e *env, rawID string) (*models.Tenant, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id: %w", err)
	}
	rootPool, err := e.pools.GetRootPool(cmd.Context())
	if err != nil {
		return nil, err
	}
	return db.GetTenant(cmd.Context(), rootPool, id, cfg.Env)
}
