package boxes

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/db"
	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/events"
	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/search"
	"github.com/docbox-nz/docbox/internal/storage"
)

// File creation goes through the upload pipeline; this file covers the
// remaining file operations: rename/move/pin, and deletion with storage
// and search cleanup.

// UpdateFileInput is a partial file update.
type UpdateFileInput struct {
	Name   *string
	Pinned *bool
	UserID *models.UserID
}

// UpdateFile renames or pins a file, keeping the search index in sync
// and recording an edit-history entry for renames.
func (s *Service) UpdateFile(ctx context.Context, scope models.DocumentBoxScope, fileID models.FileID, input UpdateFileInput) (*models.File, error) {
	withScope, err := db.GetFileWithScope(ctx, s.Pool, fileID)
	if err != nil {
		return nil, err
	}
	if withScope.Scope != scope {
		return nil, docerr.NotFound("file not found")
	}
	file := withScope.File

	if err := db.UpdateFile(ctx, s.Pool, file.ID, models.UpdateFile{
		Name:   input.Name,
		Pinned: input.Pinned,
	}); err != nil {
		return nil, err
	}

	if input.Name != nil {
		if err := s.Search.UpdateData(ctx, file.ID.String(), search.UpdateData{Name: input.Name}); err != nil {
			return nil, docerr.Dependency("failed to update file search entry", err)
		}
		if *input.Name != file.Name {
			fileRef := file.ID
			previousName := file.Name
			if err := db.CreateEditHistory(ctx, s.Pool, models.CreateEditHistory{
				ID:           uuid.New(),
				TargetKind:   models.EditTargetFile,
				FileID:       &fileRef,
				PreviousName: &previousName,
				CreatedBy:    input.UserID,
				CreatedAt:    nowUTC(),
			}); err != nil {
				return nil, err
			}
		}
	}

	updated, err := db.GetFile(ctx, s.Pool, file.ID)
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, events.FileUpdated(scope, updated))
	return updated, nil
}

// DeleteFile removes a file row (generated files and edit history
// cascade), its stored objects, and its search documents, then publishes
// FileDeleted. Storage cleanup is best-effort: a missing object is not
// an error, and a failed delete is logged by the caller's storage layer
// rather than resurrecting the database row.
func (s *Service) DeleteFile(ctx context.Context, store storage.Storage, log *zap.Logger, scope models.DocumentBoxScope, fileID models.FileID) error {
	if log == nil {
		log = zap.NewNop()
	}

	withScope, err := db.GetFileWithScope(ctx, s.Pool, fileID)
	if err != nil {
		return err
	}
	if withScope.Scope != scope {
		return docerr.NotFound("file not found")
	}
	file := withScope.File

	generated, err := db.ListGeneratedFiles(ctx, s.Pool, file.ID)
	if err != nil {
		return err
	}

	// Unpacked children reference this row with ON DELETE RESTRICT;
	// they must be deleted first by the caller.
	children, err := db.ListChildFiles(ctx, s.Pool, file.ID)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return docerr.InvalidInput("file still has unpacked child files")
	}

	if err := db.DeleteFile(ctx, s.Pool, file.ID); err != nil {
		return err
	}

	for _, g := range generated {
		if err := store.DeleteFile(ctx, g.FileKey); err != nil {
			log.Error("failed to delete generated file object", zap.String("key", g.FileKey), zap.Error(err))
		}
	}
	if err := store.DeleteFile(ctx, file.FileKey); err != nil {
		log.Error("failed to delete file object", zap.String("key", file.FileKey), zap.Error(err))
	}

	if err := s.Search.DeleteData(ctx, file.ID.String()); err != nil {
		return docerr.Dependency("failed to delete file search entry", err)
	}

	s.Events.Publish(ctx, events.FileDeleted(scope, &file))
	return nil
}
