// Package search provides the uniform search contract docbox uses over
// three backends: a document-search service (typesense), a self-hosted
// embedded engine (bleve), and a degenerate database-only backend
// (Postgres tsvector). All three normalize to the same request/result
// shape defined in this file.
package search

import (
	"context"
	"time"

	"github.com/docbox-nz/docbox/internal/models"
)

// ItemType discriminates the three kinds of entity the index holds.
type ItemType string

const (
	ItemFile   ItemType = "File"
	ItemFolder ItemType = "Folder"
	ItemLink   ItemType = "Link"
)

// ScoreKind tags a Score so backends with incompatible ranges (bleve's
// float relevance vs. typesense's integer text-match score) can still be
// compared for ordering within one backend's results without forcing a
// lossy conversion across backends.
type ScoreKind string

const (
	ScoreInteger ScoreKind = "Integer"
	ScoreFloat   ScoreKind = "Float"
)

// Score is a tagged union over the two score shapes backends produce.
type Score struct {
	Kind  ScoreKind
	Int   int64
	Float float64
}

// IntScore builds an integer-tagged Score.
func IntScore(v int64) Score { return Score{Kind: ScoreInteger, Int: v} }

// FloatScore builds a float-tagged Score.
func FloatScore(v float64) Score { return Score{Kind: ScoreFloat, Float: v} }

// CreatedAtRange bounds add_data/search queries by creation time.
type CreatedAtRange struct {
	Start *time.Time
	End   *time.Time
}

// Request is the common search query shape across all three backends.
type Request struct {
	Query          *string
	IncludeName    bool
	IncludeContent bool
	ItemID         *string
	FolderID       *models.FolderID
	Mime           *string
	CreatedBy      *models.UserID
	CreatedAt      *CreatedAtRange
	Size           int
	Offset         int
	MaxPages       int
	PagesOffset    int
}

// HasTargets reports whether the request names any searchable target;
// when false and no filters apply, backends refuse with "no query
// targets specified" per the search contract's invariant.
func (r *Request) HasTargets() bool {
	return r.IncludeName || r.IncludeContent
}

// PageMatch is one page's highlighted snippet hits within a file.
type PageMatch struct {
	Page    int
	Matches []string
}

// Hit is one normalized result row.
type Hit struct {
	ItemType     ItemType
	ItemID       string
	DocumentBox  models.DocumentBoxScope
	Score        Score
	NameMatch    bool
	ContentMatch bool
	TotalHits    int
	PageMatches  []PageMatch
}

// Results is the page of hits a search_index call returns.
type Results struct {
	Hits       []Hit
	TotalHits  int
}

// Page is one page of extracted text content for a file, used when
// building index entries for files with extracted text.
type Page struct {
	Page    int
	Content string
}

// IndexData is one item to add_data/bulk add_data.
type IndexData struct {
	Type        ItemType
	ItemID      string
	FolderID    *models.FolderID
	DocumentBox models.DocumentBoxScope
	Name        string
	Mime        *string
	Content     *string
	Pages       []Page
	CreatedAt   time.Time
	CreatedBy   *models.UserID
}

// UpdateData is a partial update applied to every document matching an
// item id.
type UpdateData struct {
	FolderID *models.FolderID
	Name     *string
	Content  *string
	Pages    []Page
}

// Migration is one named, idempotent schema change a search backend can
// apply, analogous to a database migration.
type Migration struct {
	Name  string
	Apply func(ctx context.Context, idx Index) error
}

// Index is the contract every search backend implements for one
// tenant's index.
type Index interface {
	CreateIndex(ctx context.Context) error
	DeleteIndex(ctx context.Context) error
	IndexExists(ctx context.Context) (bool, error)

	AddData(ctx context.Context, items []IndexData) error
	UpdateData(ctx context.Context, itemID string, partial UpdateData) error
	DeleteData(ctx context.Context, itemID string) error
	DeleteByScope(ctx context.Context, scope models.DocumentBoxScope) error

	SearchIndex(ctx context.Context, scopes []models.DocumentBoxScope, req Request, folderSubtree *models.FolderID) (Results, error)
	SearchIndexFile(ctx context.Context, scope models.DocumentBoxScope, fileID string, req Request) (Results, error)

	// GetPendingMigrations returns the migrations this backend knows
	// about that are not present in applied.
	GetPendingMigrations(applied []models.TenantMigration) []Migration
	ApplyMigration(ctx context.Context, m Migration) error
}

// ErrNotSupported is returned by backends that cannot perform an
// operation at all (the edge-ngram backend's lack of per-file page
// search); callers must tolerate it per the contract's capability-gap
// rule.
var ErrNotSupported = notSupportedError{}

type notSupportedError struct{}

func (notSupportedError) Error() string { return "operation not supported by this search backend" }
