package boxes

import (
	"context"
	"net/url"

	"github.com/google/uuid"

	"github.com/docbox-nz/docbox/internal/db"
	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/events"
	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/search"
)

// CreateLinkInput describes a new link.
type CreateLinkInput struct {
	Scope     models.DocumentBoxScope
	FolderID  models.FolderID
	Name      string
	URL       string
	CreatedBy *models.UserID
}

// CreateLink stores a link in a folder, indexes its URL as content, and
// publishes LinkCreated.
func (s *Service) CreateLink(ctx context.Context, input CreateLinkInput) (*models.Link, error) {
	if input.Name == "" {
		return nil, docerr.InvalidInput("link name must not be empty")
	}
	if _, err := url.ParseRequestURI(input.URL); err != nil {
		return nil, docerr.InvalidInput("link value is not a valid url")
	}

	folder, err := db.GetFolder(ctx, s.Pool, input.FolderID)
	if err != nil {
		return nil, err
	}
	if folder.DocumentBox != input.Scope {
		return nil, docerr.InvalidInput("folder belongs to a different document box")
	}

	linkID := uuid.New()
	if err := db.CreateLink(ctx, s.Pool, models.CreateLink{
		ID:        linkID,
		Name:      input.Name,
		URL:       input.URL,
		FolderID:  input.FolderID,
		CreatedBy: input.CreatedBy,
		CreatedAt: nowUTC(),
	}); err != nil {
		return nil, err
	}

	link, err := db.GetLink(ctx, s.Pool, linkID)
	if err != nil {
		return nil, err
	}

	value := link.URL
	if err := s.Search.AddData(ctx, []search.IndexData{{
		Type:        search.ItemLink,
		ItemID:      link.ID.String(),
		FolderID:    &link.FolderID,
		DocumentBox: input.Scope,
		Name:        link.Name,
		Content:     &value,
		CreatedAt:   link.CreatedAt,
		CreatedBy:   link.CreatedBy,
	}}); err != nil {
		return nil, docerr.Dependency("failed to index link", err)
	}

	s.Events.Publish(ctx, events.LinkCreated(input.Scope, link))
	return link, nil
}

// UpdateLinkInput is a partial link update.
type UpdateLinkInput struct {
	Name     *string
	URL      *string
	FolderID *models.FolderID
	Pinned   *bool
	UserID   *models.UserID
}

// UpdateLink renames, re-targets, moves, or pins a link, keeping the
// search index in sync and recording an edit-history entry for renames.
func (s *Service) UpdateLink(ctx context.Context, scope models.DocumentBoxScope, linkID models.LinkID, input UpdateLinkInput) (*models.Link, error) {
	link, err := db.GetLink(ctx, s.Pool, linkID)
	if err != nil {
		return nil, err
	}
	folder, err := db.GetFolder(ctx, s.Pool, link.FolderID)
	if err != nil {
		return nil, err
	}
	if folder.DocumentBox != scope {
		return nil, docerr.NotFound("link not found")
	}

	if input.URL != nil {
		if _, err := url.ParseRequestURI(*input.URL); err != nil {
			return nil, docerr.InvalidInput("link value is not a valid url")
		}
	}
	if input.FolderID != nil {
		target, err := db.GetFolder(ctx, s.Pool, *input.FolderID)
		if err != nil {
			return nil, docerr.InvalidInput("target folder not found")
		}
		if target.DocumentBox != scope {
			return nil, docerr.InvalidInput("cannot move a link into a different document box")
		}
	}

	previousName := link.Name
	if err := db.UpdateLink(ctx, s.Pool, link.ID, models.UpdateLink{
		Name:     input.Name,
		FolderID: input.FolderID,
		Pinned:   input.Pinned,
	}); err != nil {
		return nil, err
	}
	if input.URL != nil {
		if _, err := s.Pool.Exec(ctx, `UPDATE links SET value = $2 WHERE id = $1`, link.ID, *input.URL); err != nil {
			return nil, docerr.Dependency("failed to update link value", err)
		}
	}

	if input.Name != nil || input.FolderID != nil || input.URL != nil {
		if err := s.Search.UpdateData(ctx, link.ID.String(), search.UpdateData{
			Name:     input.Name,
			FolderID: input.FolderID,
			Content:  input.URL,
		}); err != nil {
			return nil, docerr.Dependency("failed to update link search entry", err)
		}
	}

	if input.Name != nil && *input.Name != previousName {
		linkRef := link.ID
		if err := db.CreateEditHistory(ctx, s.Pool, models.CreateEditHistory{
			ID:           uuid.New(),
			TargetKind:   models.EditTargetLink,
			LinkID:       &linkRef,
			PreviousName: &previousName,
			CreatedBy:    input.UserID,
			CreatedAt:    nowUTC(),
		}); err != nil {
			return nil, err
		}
	}

	updated, err := db.GetLink(ctx, s.Pool, link.ID)
	if err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, events.LinkUpdated(scope, updated))
	return updated, nil
}

// DeleteLink removes a link, its search entry, and publishes
// LinkDeleted. Edit-history rows cascade with the row.
func (s *Service) DeleteLink(ctx context.Context, scope models.DocumentBoxScope, linkID models.LinkID) error {
	link, err := db.GetLink(ctx, s.Pool, linkID)
	if err != nil {
		return err
	}
	folder, err := db.GetFolder(ctx, s.Pool, link.FolderID)
	if err != nil {
		return err
	}
	if folder.DocumentBox != scope {
		return docerr.NotFound("link not found")
	}

	if err := db.DeleteLink(ctx, s.Pool, link.ID); err != nil {
		return err
	}
	if err := s.Search.DeleteData(ctx, link.ID.String()); err != nil {
		return docerr.Dependency("failed to delete link search entry", err)
	}

	s.Events.Publish(ctx, events.LinkDeleted(scope, link))
	return nil
}
