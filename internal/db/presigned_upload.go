package db

import (
	"context"
	"time"

	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
)

// CreatePresignedUploadTask registers a pending task before handing the
// caller a presigned URL.
func CreatePresignedUploadTask(ctx context.Context, q Querier, input models.CreatePresignedUploadTask, expiresAt time.Time) error {
	const query = `
INSERT INTO presigned_upload_tasks (id, folder_id, name, mime, file_key, status, created_at, created_by, expires_at)
VALUES ($1, $2, $3, $4, $5, 'Pending', $6, $7, $8)`
	_, err := q.Exec(ctx, query, input.ID, input.FolderID, input.Name, input.Mime, input.FileKey,
		input.CreatedAt, input.CreatedBy, expiresAt)
	if err != nil {
		return docerr.Dependency("failed to create presigned upload task", err)
	}
	return nil
}

// GetPresignedUploadTask resolves one task by id.
func GetPresignedUploadTask(ctx context.Context, q Querier, id models.PresignedUploadID) (*models.PresignedUploadTask, error) {
	const query = `
SELECT id, folder_id, name, mime, file_key, status, file_id, error, created_at, created_by
FROM presigned_upload_tasks WHERE id = $1`
	var t models.PresignedUploadTask
	var status string
	err := q.QueryRow(ctx, query, id).Scan(&t.ID, &t.FolderID, &t.Name, &t.Mime, &t.FileKey, &status,
		&t.FileID, &t.Error, &t.CreatedAt, &t.CreatedBy)
	if err != nil {
		return nil, notFoundIf(err, "presigned upload task not found")
	}
	t.Status = models.PresignedUploadStatus(status)
	return &t, nil
}

// GetPresignedUploadTaskByFileKey resolves a task by the storage key it
// was issued for, used when a bucket notification reports an object
// creation and only the key is known.
func GetPresignedUploadTaskByFileKey(ctx context.Context, q Querier, fileKey string) (*models.PresignedUploadTask, error) {
	const query = `
SELECT id, folder_id, name, mime, file_key, status, file_id, error, created_at, created_by
FROM presigned_upload_tasks WHERE file_key = $1`
	var t models.PresignedUploadTask
	var status string
	err := q.QueryRow(ctx, query, fileKey).Scan(&t.ID, &t.FolderID, &t.Name, &t.Mime, &t.FileKey, &status,
		&t.FileID, &t.Error, &t.CreatedAt, &t.CreatedBy)
	if err != nil {
		return nil, notFoundIf(err, "presigned upload task not found")
	}
	t.Status = models.PresignedUploadStatus(status)
	return &t, nil
}

// CompletePresignedUploadTask marks a task Completed once the finished
// upload pipeline produced fileID.
func CompletePresignedUploadTask(ctx context.Context, q Querier, id models.PresignedUploadID, fileID models.FileID) error {
	const query = `UPDATE presigned_upload_tasks SET status = 'Completed', file_id = $2 WHERE id = $1`
	tag, err := q.Exec(ctx, query, id, fileID)
	if err != nil {
		return docerr.Dependency("failed to complete presigned upload task", err)
	}
	if tag.RowsAffected() == 0 {
		return docerr.NotFound("presigned upload task not found")
	}
	return nil
}

// FailPresignedUploadTask marks a task Failed with a redacted message.
func FailPresignedUploadTask(ctx context.Context, q Querier, id models.PresignedUploadID, reason string) error {
	const query = `UPDATE presigned_upload_tasks SET status = 'Failed', error = $2 WHERE id = $1`
	tag, err := q.Exec(ctx, query, id, reason)
	if err != nil {
		return docerr.Dependency("failed to fail presigned upload task", err)
	}
	if tag.RowsAffected() == 0 {
		return docerr.NotFound("presigned upload task not found")
	}
	return nil
}
