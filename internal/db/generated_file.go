package db

import (
	"context"

	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
)

// CreateGeneratedFile inserts a processor-produced artifact row.
func CreateGeneratedFile(ctx context.Context, q Querier, input models.CreateGeneratedFile) error {
	const query = `
INSERT INTO generated_files (file_id, type, file_key, mime, hash) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (file_id, type) DO UPDATE SET file_key = excluded.file_key, mime = excluded.mime, hash = excluded.hash`
	_, err := q.Exec(ctx, query, input.FileID, string(input.Type), input.FileKey, input.Mime, input.Hash)
	if err != nil {
		return docerr.Dependency("failed to create generated file", err)
	}
	return nil
}

// GetGeneratedFile resolves one generated artifact by its parent file
// and kind.
func GetGeneratedFile(ctx context.Context, q Querier, fileID models.FileID, kind models.GeneratedFileType) (*models.GeneratedFile, error) {
	const query = `SELECT file_id, type, file_key, mime, hash FROM generated_files WHERE file_id = $1 AND type = $2`
	var g models.GeneratedFile
	var ty string
	if err := q.QueryRow(ctx, query, fileID, string(kind)).Scan(&g.FileID, &ty, &g.FileKey, &g.Mime, &g.Hash); err != nil {
		return nil, notFoundIf(err, "generated file not found")
	}
	g.Type = models.GeneratedFileType(ty)
	return &g, nil
}

// ListGeneratedFiles returns every generated artifact of fileID.
func ListGeneratedFiles(ctx context.Context, q Querier, fileID models.FileID) ([]models.GeneratedFile, error) {
	const query = `SELECT file_id, type, file_key, mime, hash FROM generated_files WHERE file_id = $1`
	rows, err := q.Query(ctx, query, fileID)
	if err != nil {
		return nil, docerr.Dependency("failed to list generated files", err)
	}
	defer rows.Close()

	var generated []models.GeneratedFile
	for rows.Next() {
		var g models.GeneratedFile
		var ty string
		if err := rows.Scan(&g.FileID, &ty, &g.FileKey, &g.Mime, &g.Hash); err != nil {
			return nil, docerr.Dependency("failed to read generated file row", err)
		}
		g.Type = models.GeneratedFileType(ty)
		generated = append(generated, g)
	}
	return generated, rows.Err()
}
