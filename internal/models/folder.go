package models

import (
	"time"

	"github.com/google/uuid"
)

// FolderID identifies a folder.
type FolderID = uuid.UUID

// Folder is a node in a document box's folder tree. Each document box has
// exactly one root folder (ParentFolderID == nil); root folders are
// immutable (cannot be renamed, moved, deleted, or pinned).
type Folder struct {
	ID             FolderID
	Name           string
	DocumentBox    DocumentBoxScope
	ParentFolderID *FolderID
	Pinned         bool
	CreatedAt      time.Time
	CreatedBy      *UserID
}

// IsRoot reports whether this folder is the root of its document box.
func (f *Folder) IsRoot() bool { return f.ParentFolderID == nil }

// CreateFolder is the input for creating a non-root folder. Root folders
// are created implicitly when a document box is created.
type CreateFolder struct {
	ID             FolderID
	Name           string
	DocumentBox    DocumentBoxScope
	ParentFolderID FolderID
	CreatedBy      *UserID
}

// UpdateFolder is the input for renaming, moving, or pinning a folder.
// Nil fields are left unchanged.
type UpdateFolder struct {
	Name           *string
	ParentFolderID *FolderID
	Pinned         *bool
}
