package db

import (
	"context"

	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
)

// CreateFile inserts a new file row.
func CreateFile(ctx context.Context, q Querier, input models.CreateFile) error {
	const query = `
INSERT INTO files (id, name, mime, folder_id, hash, size, encrypted, file_key, parent_id, created_at, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := q.Exec(ctx, query,
		input.ID, input.Name, input.Mime, input.FolderID, input.Hash, input.Size, input.Encrypted,
		input.FileKey, input.ParentFileID, input.CreatedAt, input.CreatedBy)
	if err != nil {
		if isUniqueViolation(err) {
			return docerr.Conflict("a file with this id already exists")
		}
		return docerr.Dependency("failed to create file", err)
	}
	return nil
}

func scanFile(row interface{ Scan(dest ...any) error }) (*models.File, error) {
	var f models.File
	if err := row.Scan(&f.ID, &f.Name, &f.Mime, &f.FolderID, &f.Hash, &f.Size, &f.Encrypted,
		&f.Pinned, &f.FileKey, &f.ParentFileID, &f.CreatedAt, &f.CreatedBy); err != nil {
		return nil, err
	}
	return &f, nil
}

const selectFileColumns = `id, name, mime, folder_id, hash, size, encrypted, pinned, file_key, parent_id, created_at, created_by`

// GetFile resolves one file by id.
func GetFile(ctx context.Context, q Querier, id models.FileID) (*models.File, error) {
	f, err := scanFile(q.QueryRow(ctx, `SELECT `+selectFileColumns+` FROM files WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundIf(err, "file not found")
	}
	return f, nil
}

// GetFileWithScope resolves a file plus the document box scope of its
// owning folder in one query.
func GetFileWithScope(ctx context.Context, q Querier, id models.FileID) (*models.FileWithScope, error) {
	const query = `
SELECT f.id, f.name, f.mime, f.folder_id, f.hash, f.size, f.encrypted, f.pinned, f.file_key, f.parent_id, f.created_at, f.created_by, fo.document_box
FROM files f JOIN folders fo ON fo.id = f.folder_id
WHERE f.id = $1`
	var result models.FileWithScope
	var box string
	err := q.QueryRow(ctx, query, id).Scan(
		&result.File.ID, &result.File.Name, &result.File.Mime, &result.File.FolderID, &result.File.Hash,
		&result.File.Size, &result.File.Encrypted, &result.File.Pinned, &result.File.FileKey,
		&result.File.ParentFileID, &result.File.CreatedAt, &result.File.CreatedBy, &box)
	if err != nil {
		return nil, notFoundIf(err, "file not found")
	}
	result.Scope = models.DocumentBoxScope(box)
	return &result, nil
}

// ListFilesInFolder returns the direct file children of folderID.
func ListFilesInFolder(ctx context.Context, q Querier, folderID models.FolderID) ([]models.File, error) {
	rows, err := q.Query(ctx, `SELECT `+selectFileColumns+` FROM files WHERE folder_id = $1 ORDER BY name`, folderID)
	if err != nil {
		return nil, docerr.Dependency("failed to list files", err)
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, docerr.Dependency("failed to read file row", err)
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

// ListChildFiles returns every file whose parent_id is parentFileID, the
// unpacked members of a container file (e.g. an email's attachments).
func ListChildFiles(ctx context.Context, q Querier, parentFileID models.FileID) ([]models.File, error) {
	rows, err := q.Query(ctx, `SELECT `+selectFileColumns+` FROM files WHERE parent_id = $1 ORDER BY name`, parentFileID)
	if err != nil {
		return nil, docerr.Dependency("failed to list child files", err)
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, docerr.Dependency("failed to read file row", err)
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

// UpdateFile applies a partial update. Nil fields are left unchanged.
func UpdateFile(ctx context.Context, q Querier, id models.FileID, input models.UpdateFile) error {
	const query = `UPDATE files SET name = COALESCE($2, name), pinned = COALESCE($3, pinned) WHERE id = $1`
	tag, err := q.Exec(ctx, query, id, input.Name, input.Pinned)
	if err != nil {
		return docerr.Dependency("failed to update file", err)
	}
	if tag.RowsAffected() == 0 {
		return docerr.NotFound("file not found")
	}
	return nil
}

// DeleteFile removes a file row; generated_files and edit_history rows
// cascade.
func DeleteFile(ctx context.Context, q Querier, id models.FileID) error {
	tag, err := q.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return docerr.Dependency("failed to delete file", err)
	}
	if tag.RowsAffected() == 0 {
		return docerr.NotFound("file not found")
	}
	return nil
}
