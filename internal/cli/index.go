package cli

import (
	"github.com/spf13/cobra"

	"github.com/docbox-nz/docbox/internal/rebuild"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage tenant search indexes",
}

var indexRebuildTenantID string

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild a tenant's search index from its database and storage",
	Long: `Rebuild a tenant's search index from authoritative state: link and
folder rows are re-indexed directly, and files with extracted text have
their pages rebuilt from the stored text-content artifact.`,
	RunE: runIndexRebuild,
}

func init() {
	indexRebuildCmd.Flags().StringVar(&indexRebuildTenantID, "tenant-id", "", "tenant id")
	_ = indexRebuildCmd.MarkFlagRequired("tenant-id")

	indexCmd.AddCommand(indexRebuildCmd)
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	tenant, err := resolveTenant(cmd, e, indexRebuildTenantID)
	if err != nil {
		return err
	}

	pool, err := e.pools.GetTenantPool(ctx, tenant)
	if err != nil {
		return err
	}
	index, err := e.search.ForTenant(tenant)
	if err != nil {
		return err
	}

	rebuilder := &rebuild.Rebuilder{
		DB:      pool,
		Storage: e.storage.ForBucket(tenant.StorageBucketName),
		Search:  index,
		Logger:  e.log,
	}
	if err := rebuilder.Rebuild(ctx); err != nil {
		return err
	}

	cmd.Printf("rebuilt search index for tenant %s\n", tenant.ID)
	return nil
}
