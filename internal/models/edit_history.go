package models

import (
	"time"

	"github.com/google/uuid"
)

// EditHistoryID identifies an edit history entry.
type EditHistoryID = uuid.UUID

// EditTargetKind discriminates which entity an EditHistory row describes.
type EditTargetKind string

const (
	EditTargetFile EditTargetKind = "File"
	EditTargetLink EditTargetKind = "Link"
)

// EditHistory records a single mutation to a file or link for audit
// purposes. Exactly one of FileID/LinkID is set, matching TargetKind.
type EditHistory struct {
	ID         EditHistoryID
	TargetKind EditTargetKind
	FileID     *FileID
	LinkID     *LinkID
	PreviousName *string
	CreatedAt  time.Time
	CreatedBy  *UserID
}

// CreateEditHistory is the input for recording an edit.
type CreateEditHistory struct {
	ID           EditHistoryID
	TargetKind   EditTargetKind
	FileID       *FileID
	LinkID       *LinkID
	PreviousName *string
	CreatedBy    *UserID
	CreatedAt    time.Time
}
