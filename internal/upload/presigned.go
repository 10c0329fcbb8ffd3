package upload

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/db"
	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/storage"
)

// PresignedInput is the request to start a presigned upload: the client
// receives a signed PUT request and uploads directly to storage; the
// bucket notification later completes the task out of band.
type PresignedInput struct {
	Scope     models.DocumentBoxScope
	FolderID  models.FolderID
	Name      string
	Mime      string
	Size      int64
	CreatedBy *models.UserID
}

// PresignedTask is what the client needs to perform the upload and poll
// for completion.
type PresignedTask struct {
	TaskID    models.PresignedUploadID
	Request   storage.PresignedRequest
	ExpiresAt time.Time
}

// CreatePresigned registers a pending upload task and returns the
// presigned request the client uploads against. The storage key is
// derived the same way a direct upload's would be, so completion can
// reuse it verbatim.
func CreatePresigned(ctx context.Context, pool *pgxpool.Pool, store storage.Storage, input PresignedInput) (*PresignedTask, error) {
	if input.Name == "" {
		return nil, docerr.InvalidInput("file name must not be empty")
	}

	key := fileKey(string(input.Scope), input.Name)
	request, expiresAt, err := store.CreatePresigned(ctx, key, input.Size)
	if err != nil {
		return nil, docerr.Dependency("failed to create presigned upload", err)
	}

	taskID := uuid.New()
	if err := db.CreatePresignedUploadTask(ctx, pool, models.CreatePresignedUploadTask{
		ID:        taskID,
		FolderID:  input.FolderID,
		Name:      input.Name,
		Mime:      input.Mime,
		FileKey:   key,
		CreatedBy: input.CreatedBy,
		CreatedAt: nowFunc(),
	}, expiresAt); err != nil {
		return nil, err
	}

	return &PresignedTask{TaskID: taskID, Request: request, ExpiresAt: expiresAt}, nil
}

// CompletePresigned finishes a presigned upload once the object has
// landed in storage (signalled by a bucket notification): it reads the
// uploaded bytes back, runs the normal upload pipeline with the task's
// existing storage key (so the main upload step is skipped), and marks
// the task Completed or Failed. The returned result is nil when the
// task was already terminal.
func (p *Pipeline) CompletePresigned(ctx context.Context, scope models.DocumentBoxScope, taskID models.PresignedUploadID) (*Result, error) {
	task, err := db.GetPresignedUploadTask(ctx, p.Pool, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.PresignedUploadPending {
		return nil, nil
	}

	body, err := p.Storage.GetFile(ctx, task.FileKey)
	if err != nil {
		p.failPresigned(ctx, task.ID, "uploaded object was not found in storage")
		return nil, docerr.Dependency("failed to read presigned upload object", err)
	}
	content, err := storage.CollectBytes(body)
	if err != nil {
		p.failPresigned(ctx, task.ID, "uploaded object could not be read")
		return nil, docerr.Dependency("failed to read presigned upload object", err)
	}

	fileKey := task.FileKey
	result, err := p.Upload(ctx, Input{
		FolderID:  task.FolderID,
		Scope:     scope,
		Name:      task.Name,
		Mime:      task.Mime,
		Bytes:     content,
		CreatedBy: task.CreatedBy,
		FileKey:   &fileKey,
	})
	if err != nil {
		p.failPresigned(ctx, task.ID, "file processing failed")
		return nil, err
	}

	if err := db.CompletePresignedUploadTask(ctx, p.Pool, task.ID, result.File.ID); err != nil {
		return result, err
	}
	return result, nil
}

// CompletePresignedByKey completes the task registered for a storage
// key, resolving the owning document box through the task's folder.
// This is the entry point a bucket notification handler calls, since a
// notification only carries the object key.
func (p *Pipeline) CompletePresignedByKey(ctx context.Context, key string) (*Result, error) {
	task, err := db.GetPresignedUploadTaskByFileKey(ctx, p.Pool, key)
	if err != nil {
		return nil, err
	}
	folder, err := db.GetFolder(ctx, p.Pool, task.FolderID)
	if err != nil {
		return nil, err
	}
	return p.CompletePresigned(ctx, folder.DocumentBox, task.ID)
}

// failPresigned records a terminal failure on a task, logging rather
// than surfacing a second error from the status write itself.
func (p *Pipeline) failPresigned(ctx context.Context, taskID models.PresignedUploadID, reason string) {
	if err := db.FailPresignedUploadTask(ctx, p.Pool, taskID, reason); err != nil {
		p.logger().Error("failed to mark presigned upload task as failed", zap.Error(err))
	}
}
