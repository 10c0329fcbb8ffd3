package db

import (
	"context"

	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
)

const selectLinkColumns = `id, name, value, folder_id, pinned, created_at, created_by, preview_title, preview_description, preview_image_key, preview_favicon_key`

func scanLink(row interface{ Scan(dest ...any) error }) (*models.Link, error) {
	var l models.Link
	if err := row.Scan(&l.ID, &l.Name, &l.URL, &l.FolderID, &l.Pinned, &l.CreatedAt, &l.CreatedBy,
		&l.PreviewTitle, &l.PreviewDescription, &l.PreviewImageKey, &l.PreviewFaviconKey); err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLink inserts a new link row.
func CreateLink(ctx context.Context, q Querier, input models.CreateLink) error {
	const query = `INSERT INTO links (id, name, value, folder_id, created_at, created_by) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := q.Exec(ctx, query, input.ID, input.Name, input.URL, input.FolderID, input.CreatedAt, input.CreatedBy)
	if err != nil {
		return docerr.Dependency("failed to create link", err)
	}
	return nil
}

// GetLink resolves one link by id.
func GetLink(ctx context.Context, q Querier, id models.LinkID) (*models.Link, error) {
	l, err := scanLink(q.QueryRow(ctx, `SELECT `+selectLinkColumns+` FROM links WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundIf(err, "link not found")
	}
	return l, nil
}

// ListLinksInFolder returns the direct link children of folderID.
func ListLinksInFolder(ctx context.Context, q Querier, folderID models.FolderID) ([]models.Link, error) {
	rows, err := q.Query(ctx, `SELECT `+selectLinkColumns+` FROM links WHERE folder_id = $1 ORDER BY name`, folderID)
	if err != nil {
		return nil, docerr.Dependency("failed to list links", err)
	}
	defer rows.Close()

	var links []models.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, docerr.Dependency("failed to read link row", err)
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

// UpdateLink applies a partial update, including resolved preview data.
// Nil fields are left unchanged.
func UpdateLink(ctx context.Context, q Querier, id models.LinkID, input models.UpdateLink) error {
	const query = `
UPDATE links SET
	name = COALESCE($2, name),
	folder_id = COALESCE($3, folder_id),
	pinned = COALESCE($4, pinned),
	preview_title = COALESCE($5, preview_title),
	preview_description = COALESCE($6, preview_description),
	preview_image_key = COALESCE($7, preview_image_key),
	preview_favicon_key = COALESCE($8, preview_favicon_key)
WHERE id = $1`
	tag, err := q.Exec(ctx, query, id, input.Name, input.FolderID, input.Pinned,
		input.PreviewTitle, input.PreviewDescription, input.PreviewImageKey, input.PreviewFaviconKey)
	if err != nil {
		return docerr.Dependency("failed to update link", err)
	}
	if tag.RowsAffected() == 0 {
		return docerr.NotFound("link not found")
	}
	return nil
}

// DeleteLink removes a link row; edit_history rows cascade.
func DeleteLink(ctx context.Context, q Querier, id models.LinkID) error {
	tag, err := q.Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return docerr.Dependency("failed to delete link", err)
	}
	if tag.RowsAffected() == 0 {
		return docerr.NotFound("link not found")
	}
	return nil
}
