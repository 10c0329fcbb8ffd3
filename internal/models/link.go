package models

import (
	"time"

	"github.com/google/uuid"
)

// LinkID identifies a link.
type LinkID = uuid.UUID

// Link is a bookmarked URL living alongside files in a folder. Preview
// fields are populated asynchronously by the link preview resolver and
// may be empty immediately after creation.
type Link struct {
	ID             LinkID
	Name           string
	URL            string
	FolderID       FolderID
	PreviewTitle   *string
	PreviewDescription *string
	PreviewImageKey    *string
	PreviewFaviconKey  *string
	Pinned         bool
	CreatedAt      time.Time
	CreatedBy      *UserID
}

// LinkWithScope pairs a link with the document box scope resolved via its
// folder, for callers that already joined.
type LinkWithScope struct {
	Link  Link
	Scope DocumentBoxScope
}

// CreateLink is the input for inserting a link row.
type CreateLink struct {
	ID        LinkID
	Name      string
	URL       string
	FolderID  FolderID
	CreatedBy *UserID
	CreatedAt time.Time
}

// UpdateLink is the input for renaming, moving, or pinning a link, or for
// recording resolved preview data. Nil fields are left unchanged.
type UpdateLink struct {
	Name               *string
	FolderID           *FolderID
	Pinned             *bool
	PreviewTitle       *string
	PreviewDescription *string
	PreviewImageKey    *string
	PreviewFaviconKey  *string
}
