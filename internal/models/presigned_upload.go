package models

import (
	"time"

	"github.com/google/uuid"
)

// PresignedUploadID identifies a presigned upload task.
type PresignedUploadID = uuid.UUID

// PresignedUploadStatus is the lifecycle state of a presigned upload task.
type PresignedUploadStatus string

const (
	PresignedUploadPending   PresignedUploadStatus = "Pending"
	PresignedUploadCompleted PresignedUploadStatus = "Completed"
	PresignedUploadFailed    PresignedUploadStatus = "Failed"
)

// PresignedUploadTask tracks an upload that the caller performs directly
// against storage via a presigned URL. Docbox learns of completion out of
// band (a storage bucket notification) and finishes the upload pipeline
// from FileKey. FileID is populated once Status reaches Completed; Error
// is populated once Status reaches Failed.
type PresignedUploadTask struct {
	ID        PresignedUploadID
	FolderID  FolderID
	Name      string
	Mime      string
	FileKey   string
	Status    PresignedUploadStatus
	FileID    *FileID
	Error     *string
	CreatedAt time.Time
	CreatedBy *UserID
}

// CreatePresignedUploadTask is the input for registering a pending task
// before handing the caller a presigned URL.
type CreatePresignedUploadTask struct {
	ID        PresignedUploadID
	FolderID  FolderID
	Name      string
	Mime      string
	FileKey   string
	CreatedBy *UserID
	CreatedAt time.Time
}
