// Package boxes implements the entity operations of a document box:
// box lifecycle, the folder tree, links, and file records, keeping the
// database, the search index, and the event stream consistent with each
// other on every mutation.
package boxes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docbox-nz/docbox/internal/db"
	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/events"
	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/search"
)

// Service binds one tenant's database pool, search index, and event
// publisher, the shared dependencies of every entity operation.
type Service struct {
	Pool   *pgxpool.Pool
	Search search.Index
	Events events.Publisher
}

// CreateDocumentBox creates a new scope and its immutable root folder.
func (s *Service) CreateDocumentBox(ctx context.Context, scope models.DocumentBoxScope, createdBy *models.UserID) (*models.Folder, error) {
	if scope == "" {
		return nil, docerr.InvalidInput("document box scope must not be empty")
	}
	if scope.IsWildcard() {
		return nil, docerr.InvalidInput("document box scope must not end in a wildcard")
	}

	if _, err := db.GetRootFolder(ctx, s.Pool, scope); err == nil {
		return nil, docerr.Conflict("document box already exists")
	}

	rootID := uuid.New()
	if err := db.CreateRootFolder(ctx, s.Pool, scope, rootID); err != nil {
		return nil, err
	}
	return db.GetFolder(ctx, s.Pool, rootID)
}

// GetDocumentBox resolves a box's root folder, the entry point for
// listing its contents.
func (s *Service) GetDocumentBox(ctx context.Context, scope models.DocumentBoxScope) (*models.Folder, error) {
	return db.GetRootFolder(ctx, s.Pool, scope)
}

// DeleteDocumentBox removes everything a box owns: every file (and its
// stored objects, via the caller-deleted rows' keys), link, and folder,
// plus every search entry in the scope. Returns the storage keys of the
// deleted files so the caller can clean up the object store.
func (s *Service) DeleteDocumentBox(ctx context.Context, scope models.DocumentBoxScope) ([]string, error) {
	root, err := db.GetRootFolder(ctx, s.Pool, scope)
	if err != nil {
		return nil, err
	}

	folders, err := db.FolderSubtreeIDs(ctx, s.Pool, root.ID)
	if err != nil {
		return nil, err
	}

	var storageKeys []string
	err = db.WithTx(ctx, s.Pool, func(tx pgx.Tx) error {
		for _, folderID := range folders {
			files, err := db.ListFilesInFolder(ctx, tx, folderID)
			if err != nil {
				return err
			}
			for _, file := range files {
				generated, err := db.ListGeneratedFiles(ctx, tx, file.ID)
				if err != nil {
					return err
				}
				for _, g := range generated {
					storageKeys = append(storageKeys, g.FileKey)
				}
				storageKeys = append(storageKeys, file.FileKey)
			}
		}

		// Children before parents: the folder FK is ON DELETE RESTRICT.
		for i := len(folders) - 1; i >= 0; i-- {
			if _, err := tx.Exec(ctx, `DELETE FROM files WHERE folder_id = $1`, folders[i]); err != nil {
				return docerr.Dependency("failed to delete document box files", err)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM links WHERE folder_id = $1`, folders[i]); err != nil {
				return docerr.Dependency("failed to delete document box links", err)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM folders WHERE id = $1`, folders[i]); err != nil {
				return docerr.Dependency("failed to delete document box folder", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.Search.DeleteByScope(ctx, scope); err != nil {
		return storageKeys, docerr.Dependency("failed to clear document box search entries", err)
	}
	return storageKeys, nil
}

func nowUTC() time.Time { return time.Now().UTC() }
