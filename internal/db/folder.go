package db

import (
	"context"

	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
)

// CreateRootFolder creates the always-present, immutable root folder for
// a freshly-created document box.
func CreateRootFolder(ctx context.Context, q Querier, scope models.DocumentBoxScope, folderID models.FolderID) error {
	const query = `INSERT INTO folders (id, name, document_box, folder_id, pinned) VALUES ($1, $2, $3, NULL, false)`
	_, err := q.Exec(ctx, query, folderID, string(scope), string(scope))
	if err != nil {
		return docerr.Dependency("failed to create root folder", err)
	}
	return nil
}

// CreateFolder inserts a new non-root folder.
func CreateFolder(ctx context.Context, q Querier, input models.CreateFolder) error {
	const query = `
INSERT INTO folders (id, name, document_box, folder_id, created_by)
VALUES ($1, $2, $3, $4, $5)`
	_, err := q.Exec(ctx, query, input.ID, input.Name, string(input.DocumentBox), input.ParentFolderID, input.CreatedBy)
	if err != nil {
		return docerr.Dependency("failed to create folder", err)
	}
	return nil
}

func scanFolder(row interface{ Scan(dest ...any) error }) (*models.Folder, error) {
	var f models.Folder
	var box string
	if err := row.Scan(&f.ID, &f.Name, &box, &f.ParentFolderID, &f.Pinned, &f.CreatedAt, &f.CreatedBy); err != nil {
		return nil, err
	}
	f.DocumentBox = models.DocumentBoxScope(box)
	return &f, nil
}

// GetFolder resolves one folder by id.
func GetFolder(ctx context.Context, q Querier, id models.FolderID) (*models.Folder, error) {
	const query = `SELECT id, name, document_box, folder_id, pinned, created_at, created_by FROM folders WHERE id = $1`
	f, err := scanFolder(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundIf(err, "folder not found")
	}
	return f, nil
}

// GetRootFolder resolves a document box's root folder.
func GetRootFolder(ctx context.Context, q Querier, scope models.DocumentBoxScope) (*models.Folder, error) {
	const query = `SELECT id, name, document_box, folder_id, pinned, created_at, created_by FROM folders WHERE document_box = $1 AND folder_id IS NULL`
	f, err := scanFolder(q.QueryRow(ctx, query, string(scope)))
	if err != nil {
		return nil, notFoundIf(err, "document box not found")
	}
	return f, nil
}

// ListChildFolders returns the direct children of parentID.
func ListChildFolders(ctx context.Context, q Querier, parentID models.FolderID) ([]models.Folder, error) {
	const query = `SELECT id, name, document_box, folder_id, pinned, created_at, created_by FROM folders WHERE folder_id = $1 ORDER BY name`
	rows, err := q.Query(ctx, query, parentID)
	if err != nil {
		return nil, docerr.Dependency("failed to list child folders", err)
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

// FolderSubtreeIDs returns id and every descendant id of id, via a
// recursive CTE, used to scope searches and moves to a folder subtree.
func FolderSubtreeIDs(ctx context.Context, q Querier, id models.FolderID) ([]models.FolderID, error) {
	const query = `
WITH RECURSIVE subtree AS (
	SELECT id FROM folders WHERE id = $1
	UNION ALL
	SELECT f.id FROM folders f JOIN subtree s ON f.folder_id = s.id
)
SELECT id FROM subtree`
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, docerr.Dependency("failed to resolve folder subtree", err)
	}
	defer rows.Close()

	var ids []models.FolderID
	for rows.Next() {
		var fid models.FolderID
		if err := rows.Scan(&fid); err != nil {
			return nil, docerr.Dependency("failed to read folder subtree row", err)
		}
		ids = append(ids, fid)
	}
	return ids, rows.Err()
}

// UpdateFolder applies a partial update. Nil fields are left unchanged.
// Callers must reject attempts to rename/move/pin the root folder and
// moves that would create a cycle before calling this.
func UpdateFolder(ctx context.Context, q Querier, id models.FolderID, input models.UpdateFolder) error {
	const query = `
UPDATE folders SET
	name = COALESCE($2, name),
	folder_id = COALESCE($3, folder_id),
	pinned = COALESCE($4, pinned)
WHERE id = $1`
	tag, err := q.Exec(ctx, query, id, input.Name, input.ParentFolderID, input.Pinned)
	if err != nil {
		return docerr.Dependency("failed to update folder", err)
	}
	if tag.RowsAffected() == 0 {
		return docerr.NotFound("folder not found")
	}
	return nil
}

// DeleteFolder removes a non-root folder. The caller must ensure the
// folder has no children left (or that ON DELETE RESTRICT is desired).
func DeleteFolder(ctx context.Context, q Querier, id models.FolderID) error {
	tag, err := q.Exec(ctx, `DELETE FROM folders WHERE id = $1 AND folder_id IS NOT NULL`, id)
	if err != nil {
		return docerr.Dependency("failed to delete folder", err)
	}
	if tag.RowsAffected() == 0 {
		return docerr.NotFound("folder not found")
	}
	return nil
}
