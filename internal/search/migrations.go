package search

import (
	"context"

	"github.com/docbox-nz/docbox/internal/models"
)

// ApplyMigrations diffs idx's known migrations against applied and runs
// whichever are missing, in order, invoking record for each one applied
// so the caller can persist it (typically inside the same root-database
// transaction the tenant provisioner is already holding open).
func ApplyMigrations(ctx context.Context, idx Index, applied []models.TenantMigration, record func(name string) error) error {
	pending := idx.GetPendingMigrations(applied)
	for _, m := range pending {
		if err := idx.ApplyMigration(ctx, m); err != nil {
			return err
		}
		if err := record(m.Name); err != nil {
			return err
		}
	}
	return nil
}
