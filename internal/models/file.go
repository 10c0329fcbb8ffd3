package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// FileID identifies a file.
type FileID = uuid.UUID

// MaxFileSize is the largest size a file record can store; sizes larger
// than this are capped rather than overflowing the database column.
const MaxFileSize = math.MaxInt32

// File is a user-uploaded file. FileKey is the opaque storage handle;
// ParentFileID links an attachment to its enclosing container file (e.g.
// an email). Hash is a content digest of the stored bytes. Encrypted is
// set when the processor detected password protection and skipped text
// extraction.
type File struct {
	ID           FileID
	Name         string
	Mime         string
	FolderID     FolderID
	Hash         string
	Size         int64
	Encrypted    bool
	Pinned       bool
	FileKey      string
	ParentFileID *FileID
	CreatedAt    time.Time
	CreatedBy    *UserID
}

// FileWithScope pairs a file with the document box scope resolved via its
// folder, avoiding a second query at call sites that already joined.
type FileWithScope struct {
	File  File
	Scope DocumentBoxScope
}

// CreateFile is the input for inserting a file row.
type CreateFile struct {
	ID           FileID
	ParentFileID *FileID
	Name         string
	Mime         string
	FileKey      string
	FolderID     FolderID
	Hash         string
	Size         int64
	Encrypted    bool
	CreatedBy    *UserID
	CreatedAt    time.Time
}

// UpdateFile is the input for renaming or pinning a file. Nil fields are
// left unchanged.
type UpdateFile struct {
	Name   *string
	Pinned *bool
}

// ClampSize caps a byte length to MaxFileSize so it fits the database's
// 32-bit size column.
func ClampSize(n int) int64 {
	if n > MaxFileSize {
		return MaxFileSize
	}
	return int64(n)
}

// GeneratedFileType enumerates the processor-produced artifact kinds.
type GeneratedFileType string

const (
	GeneratedCoverPage        GeneratedFileType = "CoverPage"
	GeneratedLargeThumbnail   GeneratedFileType = "LargeThumbnail"
	GeneratedSmallThumbnail   GeneratedFileType = "SmallThumbnail"
	GeneratedTextContent      GeneratedFileType = "TextContent"
	GeneratedPdf              GeneratedFileType = "Pdf"
	GeneratedHtmlContent      GeneratedFileType = "HtmlContent"
	GeneratedMetadata         GeneratedFileType = "Metadata"
)

// GeneratedFile is a processor-produced artifact child of a parent file.
type GeneratedFile struct {
	FileID FileID
	Type   GeneratedFileType
	FileKey string
	Mime   string
	Hash   string
}

// CreateGeneratedFile is the input for inserting a generated file row.
type CreateGeneratedFile struct {
	FileID  FileID
	Type    GeneratedFileType
	FileKey string
	Mime    string
	Hash    string
}
