package db

import (
	"context"

	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
)

// The paged scan queries below walk an entire tenant database in
// created_at order, used by the index rebuilder. Ordering is only for
// determinism; it carries no semantic weight.

// ScanLinks returns one page of every link in the tenant database,
// joined with its folder's document box scope.
func ScanLinks(ctx context.Context, q Querier, offset, limit int) ([]models.LinkWithScope, error) {
	const query = `
SELECT l.id, l.name, l.value, l.folder_id, l.pinned, l.created_at, l.created_by,
	l.preview_title, l.preview_description, l.preview_image_key, l.preview_favicon_key,
	fo.document_box
FROM links l JOIN folders fo ON fo.id = l.folder_id
ORDER BY l.created_at ASC
OFFSET $1 LIMIT $2`
	rows, err := q.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, docerr.Dependency("failed to scan links", err)
	}
	defer rows.Close()

	var links []models.LinkWithScope
	for rows.Next() {
		var l models.LinkWithScope
		var box string
		if err := rows.Scan(&l.Link.ID, &l.Link.Name, &l.Link.URL, &l.Link.FolderID, &l.Link.Pinned,
			&l.Link.CreatedAt, &l.Link.CreatedBy, &l.Link.PreviewTitle, &l.Link.PreviewDescription,
			&l.Link.PreviewImageKey, &l.Link.PreviewFaviconKey, &box); err != nil {
			return nil, docerr.Dependency("failed to read link row", err)
		}
		l.Scope = models.DocumentBoxScope(box)
		links = append(links, l)
	}
	return links, rows.Err()
}

// ScanNonRootFolders returns one page of every non-root folder in the
// tenant database. Root folders are excluded because they are never
// indexed.
func ScanNonRootFolders(ctx context.Context, q Querier, offset, limit int) ([]models.Folder, error) {
	const query = `
SELECT id, name, document_box, folder_id, pinned, created_at, created_by
FROM folders WHERE folder_id IS NOT NULL
ORDER BY created_at ASC
OFFSET $1 LIMIT $2`
	rows, err := q.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, docerr.Dependency("failed to scan folders", err)
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, docerr.Dependency("failed to read folder row", err)
		}
		folders = append(folders, *f)
	}
	return folders, rows.Err()
}

// ScanFiles returns one page of every file in the tenant database,
// joined with its folder's document box scope.
func ScanFiles(ctx context.Context, q Querier, offset, limit int) ([]models.FileWithScope, error) {
	const query = `
SELECT f.id, f.name, f.mime, f.folder_id, f.hash, f.size, f.encrypted, f.pinned, f.file_key,
	f.parent_id, f.created_at, f.created_by, fo.document_box
FROM files f JOIN folders fo ON fo.id = f.folder_id
ORDER BY f.created_at ASC
OFFSET $1 LIMIT $2`
	rows, err := q.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, docerr.Dependency("failed to scan files", err)
	}
	defer rows.Close()

	var files []models.FileWithScope
	for rows.Next() {
		var f models.FileWithScope
		var box string
		if err := rows.Scan(&f.File.ID, &f.File.Name, &f.File.Mime, &f.File.FolderID, &f.File.Hash,
			&f.File.Size, &f.File.Encrypted, &f.File.Pinned, &f.File.FileKey, &f.File.ParentFileID,
			&f.File.CreatedAt, &f.File.CreatedBy, &box); err != nil {
			return nil, docerr.Dependency("failed to read file row", err)
		}
		f.Scope = models.DocumentBoxScope(box)
		files = append(files, f)
	}
	return files, rows.Err()
}
