package upload

import (
	"context"

	"github.com/docbox-nz/docbox/internal/models"
)

// ProcessingConfig is opaque configuration the caller may attach to an
// upload, forwarded verbatim to the processor and inherited unchanged by
// recursively unpacked additional files.
type ProcessingConfig map[string]any

// Page is one page of extracted text content the processor found, keyed
// by zero-based page index.
type Page struct {
	Page    int
	Content string
}

// IndexMetadata is the subset of processing output that feeds the search
// index entry, kept separate from the upload queue because it describes
// content rather than storage artifacts.
type IndexMetadata struct {
	Pages []Page
}

// QueuedUpload is one generated artifact the processor wants written to
// storage as a child of the main file.
type QueuedUpload struct {
	Type GeneratedFileKind
	Mime string
	Data []byte
}

// GeneratedFileKind mirrors models.GeneratedFileType but is declared
// locally so the processor contract does not depend on the db-facing
// model package for its wire shape.
type GeneratedFileKind = models.GeneratedFileType

// AdditionalFile is one container member (an email attachment, a nested
// email) the processor extracted from the original bytes, eligible for
// recursive unpacking subject to the unpack-iteration bound.
type AdditionalFile struct {
	FixedID *models.FileID
	Name    string
	Mime    string
	Bytes   []byte
}

// Output is everything a processor may return for one file. A nil
// Output (with nil error) means "nothing to process" — the file is
// stored as-is with no generated artifacts, no index metadata beyond the
// name, and no additional files.
type Output struct {
	Encrypted       bool
	UploadQueue     []QueuedUpload
	IndexMetadata   *IndexMetadata
	AdditionalFiles []AdditionalFile
}

// Processor is the external, contract-only collaborator that inspects
// uploaded bytes and produces renderable artifacts, extracted text, and
// any container members to unpack. Concrete processors (PDF/office/email
// parsers) live outside this module; the pipeline only depends on this
// interface.
type Processor interface {
	Process(ctx context.Context, content []byte, mime string, config ProcessingConfig) (*Output, error)
}

// NoopProcessor never produces generated artifacts, index metadata, or
// additional files. It is the default for mime types with no registered
// processor and for tests that only exercise the transactional pipeline.
type NoopProcessor struct{}

// Process always returns (nil, nil).
func (NoopProcessor) Process(context.Context, []byte, string, ProcessingConfig) (*Output, error) {
	return nil, nil
}
