package typesense

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/search"
)

func TestEscapeValue(t *testing.T) {
	cases := map[string]string{
		"plain":           "`plain`",
		"with space":      "`with space`",
		"back`tick":       "`back\\`tick`",
		"filter:=escape)": "`filter:=escape)`",
	}
	for input, want := range cases {
		if got := escapeValue(input); got != want {
			t.Errorf("escapeValue(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestBuildScopeFilter(t *testing.T) {
	filter := buildScopeFilter([]models.DocumentBoxScope{"test", "other"})
	if filter != "document_box:=[`test`, `other`]" {
		t.Fatalf("filter = %s", filter)
	}
}

func TestBuildScopeFilter_wildcard(t *testing.T) {
	filter := buildScopeFilter([]models.DocumentBoxScope{"customer:1:*"})
	if filter != "document_box:customer:1:*" {
		t.Fatalf("filter = %s", filter)
	}

	mixed := buildScopeFilter([]models.DocumentBoxScope{"exact", "customer:*"})
	if mixed != "(document_box:customer:* || document_box:=[`exact`])" {
		t.Fatalf("mixed filter = %s", mixed)
	}
}

func TestBuildSearchFilters(t *testing.T) {
	folderID := models.FolderID(uuid.New())
	userID := models.UserID("user-1")
	start := time.Unix(1000, 0)
	end := time.Unix(2000, 0)

	filter := buildSearchFilters([]models.DocumentBoxScope{"test"}, search.Request{
		FolderID:  &folderID,
		CreatedBy: &userID,
		CreatedAt: &search.CreatedAtRange{Start: &start, End: &end},
	}, nil)

	for _, want := range []string{
		"document_box:=[`test`]",
		"created_at:>1000",
		"created_at:<2000",
		"created_by:=`user-1`",
		"folder_id:=" + folderID.String(),
	} {
		if !strings.Contains(filter, want) {
			t.Errorf("filter %s missing %s", filter, want)
		}
	}
}

func TestBuildSearchFilters_folderSubtree(t *testing.T) {
	a := models.FolderID(uuid.New())
	b := models.FolderID(uuid.New())

	filter := buildSearchFilters([]models.DocumentBoxScope{"test"}, search.Request{}, []models.FolderID{a, b})
	if !strings.Contains(filter, "folder_id:=["+a.String()+", "+b.String()+"]") {
		t.Errorf("filter %s missing subtree clause", filter)
	}
}

func TestDocumentConstructors(t *testing.T) {
	root := rootEntry{ItemType: search.ItemFile, ItemID: "item", DocumentBox: "test", Name: "doc"}

	doc := newRootDocument("item", root)
	if doc.EntryType != entryTypeRoot || doc.Page != nil {
		t.Fatalf("unexpected root document: %+v", doc)
	}

	page := newPageDocument("item-p0", root, 0, "content")
	if page.EntryType != entryTypePage {
		t.Fatalf("entry type = %q", page.EntryType)
	}
	if page.Page == nil || *page.Page != 0 {
		t.Fatal("page number missing")
	}
	if page.PageContent == nil || *page.PageContent != "content" {
		t.Fatal("page content missing")
	}
}
