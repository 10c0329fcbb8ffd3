// Package rebuild reconstructs a tenant's search index from the
// authoritative state held in its database and storage bucket: links and
// folders are re-indexed from their rows alone, and files with extracted
// text get their pages rebuilt by splitting the stored TextContent
// artifact on the page-end marker.
package rebuild

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/db"
	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/search"
	"github.com/docbox-nz/docbox/internal/storage"
)

// PageEndMarker separates pages in a stored TextContent artifact. Page
// count is always the number of separators plus one.
const PageEndMarker = "\x0C"

const (
	// databasePageSize is the page size for the link/folder/file scans.
	databasePageSize = 1000
	// fileProcessGroup bounds how many files fetch their text content
	// from storage concurrently.
	fileProcessGroup = 500
	// indexChunkSize bounds each bulk add into the search index.
	indexChunkSize = 5000
)

// Rebuilder rebuilds one tenant's search index.
type Rebuilder struct {
	DB      db.Querier
	Storage storage.Storage
	Search  search.Index
	Logger  *zap.Logger
}

func (r *Rebuilder) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

// Rebuild ensures the index exists, walks links, folders, and files out
// of the database, and bulk-loads the resulting entries back into the
// search index in chunks.
func (r *Rebuilder) Rebuild(ctx context.Context) error {
	r.logger().Info("started re-indexing tenant")

	// Create is idempotent; an index that already exists is fine.
	if err := r.Search.CreateIndex(ctx); err != nil {
		r.logger().Debug("create index before rebuild failed", zap.Error(err))
	}

	entries, err := r.collect(ctx)
	if err != nil {
		return err
	}
	r.logger().Debug("all index data loaded", zap.Int("entries", len(entries)))

	for start := 0; start < len(entries); start += indexChunkSize {
		end := min(start+indexChunkSize, len(entries))
		if err := r.Search.AddData(ctx, entries[start:end]); err != nil {
			return docerr.Dependency("failed to bulk load search index", err)
		}
	}
	return nil
}

// collect produces the full entry set: links, then non-root folders,
// then files.
func (r *Rebuilder) collect(ctx context.Context) ([]search.IndexData, error) {
	entries, err := r.linkEntries(ctx)
	if err != nil {
		return nil, err
	}

	folders, err := r.folderEntries(ctx)
	if err != nil {
		return nil, err
	}
	entries = append(entries, folders...)

	files, err := r.fileEntries(ctx)
	if err != nil {
		return nil, err
	}
	return append(entries, files...), nil
}

// linkEntries scans every link; a link's URL is indexed as its content.
func (r *Rebuilder) linkEntries(ctx context.Context) ([]search.IndexData, error) {
	var entries []search.IndexData
	for offset := 0; ; offset += databasePageSize {
		links, err := db.ScanLinks(ctx, r.DB, offset, databasePageSize)
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			link := l.Link
			value := link.URL
			entries = append(entries, search.IndexData{
				Type:        search.ItemLink,
				ItemID:      link.ID.String(),
				FolderID:    &link.FolderID,
				DocumentBox: l.Scope,
				Name:        link.Name,
				Content:     &value,
				CreatedAt:   link.CreatedAt,
				CreatedBy:   link.CreatedBy,
			})
		}
		if len(links) < databasePageSize {
			return entries, nil
		}
	}
}

// folderEntries scans every non-root folder; folders are indexed by name
// only.
func (r *Rebuilder) folderEntries(ctx context.Context) ([]search.IndexData, error) {
	var entries []search.IndexData
	for offset := 0; ; offset += databasePageSize {
		folders, err := db.ScanNonRootFolders(ctx, r.DB, offset, databasePageSize)
		if err != nil {
			return nil, err
		}
		for _, folder := range folders {
			if folder.ParentFolderID == nil {
				continue
			}
			entries = append(entries, search.IndexData{
				Type:        search.ItemFolder,
				ItemID:      folder.ID.String(),
				FolderID:    folder.ParentFolderID,
				DocumentBox: folder.DocumentBox,
				Name:        folder.Name,
				CreatedAt:   folder.CreatedAt,
				CreatedBy:   folder.CreatedBy,
			})
		}
		if len(folders) < databasePageSize {
			return entries, nil
		}
	}
}

// fileEntries scans every file, partitioning them into simple files
// (indexed without pages) and processable files whose stored text
// content is re-fetched and split back into pages.
func (r *Rebuilder) fileEntries(ctx context.Context) ([]search.IndexData, error) {
	var entries []search.IndexData
	var processable []models.FileWithScope

	for offset := 0; ; offset += databasePageSize {
		files, err := db.ScanFiles(ctx, r.DB, offset, databasePageSize)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.File.Encrypted || !IsTextExtractable(f.File.Mime) {
				entries = append(entries, fileEntry(f, nil))
			} else {
				processable = append(processable, f)
			}
		}
		if len(files) < databasePageSize {
			break
		}
	}

	for start := 0; start < len(processable); start += fileProcessGroup {
		end := min(start+fileProcessGroup, len(processable))
		group := processable[start:end]
		results := make([]search.IndexData, len(group))

		var wg sync.WaitGroup
		for i, f := range group {
			wg.Add(1)
			go func(i int, f models.FileWithScope) {
				defer wg.Done()
				pages, err := r.filePages(ctx, f.File)
				if err != nil {
					r.logger().Error("failed to rebuild file index pages",
						zap.String("file_id", f.File.ID.String()), zap.Error(err))
					results[i] = fileEntry(f, nil)
					return
				}
				results[i] = fileEntry(f, pages)
			}(i, f)
		}
		wg.Wait()

		entries = append(entries, results...)
	}

	return entries, nil
}

func fileEntry(f models.FileWithScope, pages []search.Page) search.IndexData {
	file := f.File
	mime := file.Mime
	return search.IndexData{
		Type:        search.ItemFile,
		ItemID:      file.ID.String(),
		FolderID:    &file.FolderID,
		DocumentBox: f.Scope,
		Name:        file.Name,
		Mime:        &mime,
		Pages:       pages,
		CreatedAt:   file.CreatedAt,
		CreatedBy:   file.CreatedBy,
	}
}

// filePages fetches a file's stored TextContent artifact and splits it
// back into pages.
func (r *Rebuilder) filePages(ctx context.Context, file models.File) ([]search.Page, error) {
	artifact, err := db.GetGeneratedFile(ctx, r.DB, file.ID, models.GeneratedTextContent)
	if err != nil {
		return nil, err
	}

	body, err := r.Storage.GetFile(ctx, artifact.FileKey)
	if err != nil {
		return nil, err
	}
	content, err := storage.CollectBytes(body)
	if err != nil {
		return nil, docerr.Dependency("failed to read text content", err)
	}
	if !utf8.Valid(content) {
		return nil, docerr.InvalidInput("text content is not valid utf-8")
	}

	return SplitPages(string(content)), nil
}

// SplitPages splits extracted text into page entries on the page-end
// marker. Page numbers are zero-based; joining the page contents back
// with the marker reproduces the input exactly.
func SplitPages(content string) []search.Page {
	parts := strings.Split(content, PageEndMarker)
	pages := make([]search.Page, len(parts))
	for i, part := range parts {
		pages[i] = search.Page{Page: i, Content: part}
	}
	return pages
}
