package bleveindex

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/search"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewFactory(t.TempDir()).ForIndexName("tenant-index")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.index.Close() })
	return idx
}

func strptr(s string) *string { return &s }

func folderEntry(scope, name string) search.IndexData {
	parent := uuid.New()
	return search.IndexData{
		Type:        search.ItemFolder,
		ItemID:      uuid.NewString(),
		FolderID:    &parent,
		DocumentBox: models.DocumentBoxScope(scope),
		Name:        name,
		CreatedAt:   time.Now(),
	}
}

func searchName(t *testing.T, idx *Index, scopes []models.DocumentBoxScope, query string) search.Results {
	t.Helper()
	res, err := idx.SearchIndex(context.Background(), scopes, search.Request{
		Query:       strptr(query),
		IncludeName: true,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestSearchIndex_findsFolderByName(t *testing.T) {
	idx := newTestIndex(t)
	entry := folderEntry("test", "Test Folder")
	if err := idx.AddData(context.Background(), []search.IndexData{entry}); err != nil {
		t.Fatal(err)
	}

	res := searchName(t, idx, []models.DocumentBoxScope{"test"}, "Test Folder")
	if res.TotalHits != 1 || len(res.Hits) != 1 {
		t.Fatalf("hits = %d/%d, want 1", len(res.Hits), res.TotalHits)
	}
	hit := res.Hits[0]
	if hit.ItemType != search.ItemFolder {
		t.Errorf("item type = %q", hit.ItemType)
	}
	if !hit.NameMatch || hit.ContentMatch {
		t.Errorf("name_match=%v content_match=%v", hit.NameMatch, hit.ContentMatch)
	}
}

func TestSearchIndex_scopeIsolation(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.AddData(context.Background(), []search.IndexData{folderEntry("test", "Shared Name")}); err != nil {
		t.Fatal(err)
	}

	res := searchName(t, idx, []models.DocumentBoxScope{"other"}, "Shared Name")
	if len(res.Hits) != 0 {
		t.Fatalf("search in a different scope returned %d hits", len(res.Hits))
	}
}

func TestSearchIndex_wildcardScope(t *testing.T) {
	idx := newTestIndex(t)
	entries := []search.IndexData{
		folderEntry("customer:1:files", "Invoices"),
		folderEntry("customer:2:files", "Invoices"),
		folderEntry("vendor:1:files", "Invoices"),
	}
	if err := idx.AddData(context.Background(), entries); err != nil {
		t.Fatal(err)
	}

	res := searchName(t, idx, []models.DocumentBoxScope{"customer:*"}, "Invoices")
	if len(res.Hits) != 2 {
		t.Fatalf("wildcard scope returned %d hits, want 2", len(res.Hits))
	}
	for _, hit := range res.Hits {
		if !hit.DocumentBox.Matches("customer:*") {
			t.Errorf("hit outside the wildcard scope: %q", hit.DocumentBox)
		}
	}
}

func TestSearchIndex_renameUpdatesIndex(t *testing.T) {
	idx := newTestIndex(t)
	entry := folderEntry("test", "Test Folder")
	if err := idx.AddData(context.Background(), []search.IndexData{entry}); err != nil {
		t.Fatal(err)
	}

	if err := idx.UpdateData(context.Background(), entry.ItemID, search.UpdateData{Name: strptr("Other")}); err != nil {
		t.Fatal(err)
	}

	if res := searchName(t, idx, []models.DocumentBoxScope{"test"}, "Test Folder"); len(res.Hits) != 0 {
		t.Fatalf("stale name still matched %d hits", len(res.Hits))
	}
	if res := searchName(t, idx, []models.DocumentBoxScope{"test"}, "Other"); len(res.Hits) != 1 {
		t.Fatalf("new name matched %d hits, want 1", len(res.Hits))
	}
}

func TestSearchIndex_linkValueAsContent(t *testing.T) {
	idx := newTestIndex(t)
	folderID := uuid.New()
	link := search.IndexData{
		Type:        search.ItemLink,
		ItemID:      uuid.NewString(),
		FolderID:    &folderID,
		DocumentBox: "test",
		Name:        "L",
		Content:     strptr("http://example.com"),
		CreatedAt:   time.Now(),
	}
	if err := idx.AddData(context.Background(), []search.IndexData{link}); err != nil {
		t.Fatal(err)
	}

	res, err := idx.SearchIndex(context.Background(), []models.DocumentBoxScope{"test"}, search.Request{
		Query:          strptr("http://example.com"),
		IncludeContent: true,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(res.Hits))
	}
	if !res.Hits[0].ContentMatch {
		t.Error("expected a content match on the link value")
	}
}

func TestSearchIndex_refusesWithoutTargets(t *testing.T) {
	idx := newTestIndex(t)
	_, err := idx.SearchIndex(context.Background(), []models.DocumentBoxScope{"test"}, search.Request{
		Query: strptr("anything"),
	}, nil)
	if err == nil {
		t.Fatal("expected an error when neither name nor content is targeted")
	}
}

func TestSearchIndexFile_notSupported(t *testing.T) {
	idx := newTestIndex(t)
	_, err := idx.SearchIndexFile(context.Background(), "test", uuid.NewString(), search.Request{
		Query:          strptr("beta"),
		IncludeContent: true,
	})
	if !errors.Is(err, search.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
}

func TestSearchIndex_pageCountOnFileHits(t *testing.T) {
	idx := newTestIndex(t)
	fileID := uuid.NewString()
	folderID := uuid.New()
	entry := search.IndexData{
		Type:        search.ItemFile,
		ItemID:      fileID,
		FolderID:    &folderID,
		DocumentBox: "test",
		Name:        "doc.pdf",
		Mime:        strptr("application/pdf"),
		Pages: []search.Page{
			{Page: 0, Content: "alpha content"},
			{Page: 1, Content: "beta content"},
		},
		CreatedAt: time.Now(),
	}
	if err := idx.AddData(context.Background(), []search.IndexData{entry}); err != nil {
		t.Fatal(err)
	}

	res := searchName(t, idx, []models.DocumentBoxScope{"test"}, "doc.pdf")
	if len(res.Hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(res.Hits))
	}
	if res.Hits[0].TotalHits != 2 {
		t.Fatalf("total hits = %d, want the stored page count", res.Hits[0].TotalHits)
	}
}

func TestDeleteData_removesItem(t *testing.T) {
	idx := newTestIndex(t)
	entry := folderEntry("test", "Doomed")
	if err := idx.AddData(context.Background(), []search.IndexData{entry}); err != nil {
		t.Fatal(err)
	}

	if err := idx.DeleteData(context.Background(), entry.ItemID); err != nil {
		t.Fatal(err)
	}
	if res := searchName(t, idx, []models.DocumentBoxScope{"test"}, "Doomed"); len(res.Hits) != 0 {
		t.Fatalf("deleted item still matched %d hits", len(res.Hits))
	}
}

func TestDeleteByScope_removesOnlyThatScope(t *testing.T) {
	idx := newTestIndex(t)
	entries := []search.IndexData{
		folderEntry("doomed", "Folder A"),
		folderEntry("doomed", "Folder B"),
		folderEntry("kept", "Folder C"),
	}
	if err := idx.AddData(context.Background(), entries); err != nil {
		t.Fatal(err)
	}

	if err := idx.DeleteByScope(context.Background(), "doomed"); err != nil {
		t.Fatal(err)
	}

	if res := searchName(t, idx, []models.DocumentBoxScope{"doomed"}, "Folder"); len(res.Hits) != 0 {
		t.Fatalf("deleted scope still has %d hits", len(res.Hits))
	}
	if res := searchName(t, idx, []models.DocumentBoxScope{"kept"}, "Folder"); len(res.Hits) != 1 {
		t.Fatalf("surviving scope has %d hits, want 1", len(res.Hits))
	}
}
