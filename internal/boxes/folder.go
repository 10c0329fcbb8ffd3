package boxes

import (
	"context"

	"github.com/google/uuid"

	"github.com/docbox-nz/docbox/internal/db"
	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/events"
	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/search"
)

// CreateFolderInput describes a new non-root folder.
type CreateFolderInput struct {
	Scope     models.DocumentBoxScope
	ParentID  models.FolderID
	Name      string
	CreatedBy *models.UserID
}

// CreateFolder creates a folder under an existing parent in the same
// document box, indexes it, and publishes FolderCreated.
func (s *Service) CreateFolder(ctx context.Context, input CreateFolderInput) (*models.Folder, error) {
	if input.Name == "" {
		return nil, docerr.InvalidInput("folder name must not be empty")
	}

	parent, err := db.GetFolder(ctx, s.Pool, input.ParentID)
	if err != nil {
		return nil, err
	}
	if parent.DocumentBox != input.Scope {
		return nil, docerr.InvalidInput("parent folder belongs to a different document box")
	}

	folderID := uuid.New()
	if err := db.CreateFolder(ctx, s.Pool, models.CreateFolder{
		ID:             folderID,
		Name:           input.Name,
		DocumentBox:    input.Scope,
		ParentFolderID: input.ParentID,
		CreatedBy:      input.CreatedBy,
	}); err != nil {
		return nil, err
	}

	folder, err := db.GetFolder(ctx, s.Pool, folderID)
	if err != nil {
		return nil, err
	}

	if err := s.Search.AddData(ctx, []search.IndexData{{
		Type:        search.ItemFolder,
		ItemID:      folder.ID.String(),
		FolderID:    folder.ParentFolderID,
		DocumentBox: folder.DocumentBox,
		Name:        folder.Name,
		CreatedAt:   folder.CreatedAt,
		CreatedBy:   folder.CreatedBy,
	}}); err != nil {
		return nil, docerr.Dependency("failed to index folder", err)
	}

	s.Events.Publish(ctx, events.FolderCreated(input.Scope, folder))
	return folder, nil
}

// UpdateFolderInput is a partial folder update: rename, move, or pin.
type UpdateFolderInput struct {
	Name     *string
	ParentID *models.FolderID
	Pinned   *bool
	UserID   *models.UserID
}

// UpdateFolder renames, moves, or pins a non-root folder, keeping the
// search index in sync and recording an edit-history entry.
func (s *Service) UpdateFolder(ctx context.Context, scope models.DocumentBoxScope, folderID models.FolderID, input UpdateFolderInput) (*models.Folder, error) {
	folder, err := db.GetFolder(ctx, s.Pool, folderID)
	if err != nil {
		return nil, err
	}
	if folder.DocumentBox != scope {
		return nil, docerr.NotFound("folder not found")
	}
	if folder.IsRoot() {
		return nil, docerr.InvalidInput("cannot modify the root folder")
	}

	if input.ParentID != nil {
		target, err := db.GetFolder(ctx, s.Pool, *input.ParentID)
		if err != nil {
			return nil, docerr.InvalidInput("target folder not found")
		}
		subtree, err := db.FolderSubtreeIDs(ctx, s.Pool, folder.ID)
		if err != nil {
			return nil, err
		}
		if err := validateFolderMove(folder, target, subtree); err != nil {
			return nil, err
		}
	}

	if err := db.UpdateFolder(ctx, s.Pool, folder.ID, models.UpdateFolder{
		Name:           input.Name,
		ParentFolderID: input.ParentID,
		Pinned:         input.Pinned,
	}); err != nil {
		return nil, err
	}

	if input.Name != nil || input.ParentID != nil {
		if err := s.Search.UpdateData(ctx, folder.ID.String(), search.UpdateData{
			Name:     input.Name,
			FolderID: input.ParentID,
		}); err != nil {
			return nil, docerr.Dependency("failed to update folder search entry", err)
		}
	}

	updated, err := db.GetFolder(ctx, s.Pool, folder.ID)
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, events.FolderUpdated(scope, updated))
	return updated, nil
}

// validateFolderMove checks a proposed re-parenting of folder to target,
// given the ids of folder's own subtree (folder included).
func validateFolderMove(folder, target *models.Folder, subtree []models.FolderID) error {
	if target.DocumentBox != folder.DocumentBox {
		return docerr.InvalidInput("cannot move a folder into a different document box")
	}
	if target.ID == folder.ID {
		return docerr.InvalidInput("cannot move a folder into itself")
	}
	for _, id := range subtree {
		if id == target.ID {
			return docerr.InvalidInput("cannot move a folder into its own descendant")
		}
	}
	return nil
}

// DeleteFolder removes an empty non-root folder, its search entry, and
// publishes FolderDeleted. Deleting a folder that still has children
// fails; the caller must delete the contents first.
func (s *Service) DeleteFolder(ctx context.Context, scope models.DocumentBoxScope, folderID models.FolderID) error {
	folder, err := db.GetFolder(ctx, s.Pool, folderID)
	if err != nil {
		return err
	}
	if folder.DocumentBox != scope {
		return docerr.NotFound("folder not found")
	}
	if folder.IsRoot() {
		return docerr.InvalidInput("cannot delete the root folder")
	}

	childFolders, err := db.ListChildFolders(ctx, s.Pool, folder.ID)
	if err != nil {
		return err
	}
	files, err := db.ListFilesInFolder(ctx, s.Pool, folder.ID)
	if err != nil {
		return err
	}
	links, err := db.ListLinksInFolder(ctx, s.Pool, folder.ID)
	if err != nil {
		return err
	}
	if len(childFolders) > 0 || len(files) > 0 || len(links) > 0 {
		return docerr.InvalidInput("folder is not empty")
	}

	if err := db.DeleteFolder(ctx, s.Pool, folder.ID); err != nil {
		return err
	}
	if err := s.Search.DeleteData(ctx, folder.ID.String()); err != nil {
		return docerr.Dependency("failed to delete folder search entry", err)
	}

	s.Events.Publish(ctx, events.FolderDeleted(scope, folder))
	return nil
}
