package typesense

import "github.com/docbox-nz/docbox/internal/search"

// entryType discriminates a Typesense document as either the root entry
// for an item or one page of its extracted text content.
type entryType string

const (
	entryTypeRoot entryType = "Root"
	entryTypePage entryType = "Page"
)

// rootEntry is the always-present document carrying an item's searchable
// metadata: its name, folder, owning document box, and (for links) the
// link target stored under Value.
type rootEntry struct {
	ItemType    search.ItemType `json:"item_type"`
	ItemID      string          `json:"item_id"`
	FolderID    *string         `json:"folder_id,omitempty"`
	DocumentBox string          `json:"document_box"`
	Name        string          `json:"name"`
	Value       *string         `json:"value,omitempty"`
	Mime        *string         `json:"mime,omitempty"`
	CreatedAt   int64           `json:"created_at"`
	CreatedBy   *string         `json:"created_by,omitempty"`
}

// pageEntry is one page of extracted text for a file, indexed as its own
// document so Typesense can highlight and rank individual pages.
type pageEntry struct {
	rootEntry
	Page        int     `json:"page"`
	PageContent *string `json:"page_content,omitempty"`
}

// document is the envelope every Typesense document carries: a unique
// id, a schema version tag, and an entry_type discriminant alongside the
// flattened root/page fields above.
type document struct {
	ID          string    `json:"id"`
	Version     string    `json:"version"`
	EntryType   entryType `json:"entry_type"`
	rootEntry
	Page        *int    `json:"page,omitempty"`
	PageContent *string `json:"page_content,omitempty"`
}

func newRootDocument(id string, root rootEntry) document {
	return document{ID: id, Version: "V1", EntryType: entryTypeRoot, rootEntry: root}
}

func newPageDocument(id string, root rootEntry, page int, content string) document {
	d := document{ID: id, Version: "V1", EntryType: entryTypePage, rootEntry: root}
	d.Page = &page
	d.PageContent = &content
	return d
}

// highlight is one field's highlighted snippet within a search hit.
type highlight struct {
	Field   string `json:"field"`
	Snippet string `json:"snippet"`
}

// searchHit is one row of a /multi_search response.
type searchHit struct {
	Document   document    `json:"document"`
	Highlights []highlight `json:"highlights"`
	TextMatch  int64       `json:"text_match"`
}

// groupedHit is one group ("item_id") of a grouped /multi_search response.
type groupedHit struct {
	Found int         `json:"found"`
	Hits  []searchHit `json:"hits"`
}

// searchResult is one collection's worth of results inside a
// /multi_search response's top-level "results" array.
type searchResult struct {
	Found       int          `json:"found"`
	Hits        []searchHit  `json:"hits"`
	GroupedHits []groupedHit `json:"grouped_hits"`
}

// multiSearchResponse is the envelope /multi_search always returns.
type multiSearchResponse struct {
	Results []searchResult `json:"results"`
}
