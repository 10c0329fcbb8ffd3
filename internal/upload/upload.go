// Package upload implements docbox's three-phase transactional
// file-ingestion pipeline: Phase A prepares storage and search side
// effects and recursively unpacks container files, Phase B persists
// every prepared record in a single database transaction, and Phase C
// commits and fans out creation events. Any Phase-A or Phase-B failure
// triggers a best-effort background rollback of whatever Phase A
// already wrote to storage and search.
package upload

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docbox-nz/docbox/internal/models"
)

// DefaultMaxUnpackIterations is the unpack-depth budget applied when a
// caller does not specify one: the top-level file's immediate
// attachments are unpacked, but containers nested inside those are not.
const DefaultMaxUnpackIterations = 1

// Input is the request to upload one file. FixedID lets a caller assign
// the file's id up front (used for presigned-upload completion, where
// the id was already handed to the client); ParentFileID links an
// attachment to its enclosing container file.
type Input struct {
	FixedID          *models.FileID
	ParentFileID     *models.FileID
	FolderID         models.FolderID
	Scope            models.DocumentBoxScope
	Name             string
	Mime             string
	Bytes            []byte
	CreatedBy        *models.UserID
	FileKey          *string
	ProcessingConfig ProcessingConfig

	// MaxUnpackIterations bounds recursive container unpacking. Zero
	// means "use DefaultMaxUnpackIterations"; pass a pointer via
	// WithMaxUnpackIterations to force zero explicitly.
	maxUnpackIterations *int
}

// WithMaxUnpackIterations overrides the unpack-depth budget for one
// upload, including 0 to disable unpacking entirely.
func (i Input) WithMaxUnpackIterations(n int) Input {
	i.maxUnpackIterations = &n
	return i
}

func (i Input) unpackIterations() int {
	if i.maxUnpackIterations != nil {
		return *i.maxUnpackIterations
	}
	return DefaultMaxUnpackIterations
}

// Result is the tree of records the pipeline created for one upload
// request: the main file, its generated artifacts, and the (possibly
// empty) recursively-unpacked additional files.
type Result struct {
	File       models.File
	Generated  []models.GeneratedFile
	Additional []Result
}

// fileKey derives a fresh storage key for an upload that did not supply
// one: scoped by document box so tenants never collide on key space,
// namespaced by a fresh id so retries or same-name re-uploads never
// overwrite each other, and suffixed with the original name so the
// object remains recognizable in a bucket browser. scopePrefix is a
// plain string so callers can pass either a document box scope or a
// synthetic prefix (e.g. a generated-file namespace under a file id).
func fileKey(scopePrefix, name string) string {
	return fmt.Sprintf("%s/%s-%s", scopePrefix, uuid.NewString(), name)
}

func hashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func clampSize(n int) int64 {
	return models.ClampSize(n)
}

func newFileID(fixed *models.FileID) models.FileID {
	if fixed != nil {
		return *fixed
	}
	return uuid.New()
}

var nowFunc = time.Now
