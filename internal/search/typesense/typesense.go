package typesense

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	tsclient "github.com/typesense/typesense-go/typesense"
	tsapi "github.com/typesense/typesense-go/typesense/api"
	"github.com/typesense/typesense-go/typesense/api/pointer"

	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/search"
)

// Factory builds per-tenant Index handles against one Typesense server.
type Factory struct {
	httpClient *http.Client
	baseURL    string
	apiKey     APIKeyProvider
}

// NewFactory builds a Factory from config, resolving its API key
// provider from either a literal key or a secrets lookup.
func NewFactory(apiKey APIKeyProvider, config Config) *Factory {
	return &Factory{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(config.URL, "/"),
		apiKey:     apiKey,
	}
}

// adminClient builds a typed client for collection lifecycle calls,
// resolving the API key per call so a rotated secret takes effect
// without a restart.
func (f *Factory) adminClient(ctx context.Context) (*tsclient.Client, error) {
	key, err := f.apiKey.APIKey(ctx)
	if err != nil {
		return nil, err
	}
	return tsclient.NewClient(tsclient.WithServer(f.baseURL), tsclient.WithAPIKey(key)), nil
}

// Type identifies this factory to the generic search.Factory registry.
func (f *Factory) Type() search.BackendType { return search.BackendTypesense }

// ForTenant satisfies search.Backend, using tenant.SearchIndexName as
// the Typesense collection name.
func (f *Factory) ForTenant(tenant *models.Tenant) (search.Index, error) {
	return f.ForCollection(tenant.SearchIndexName), nil
}

// ForCollection returns the Index for the named collection directly.
func (f *Factory) ForCollection(collection string) *Index {
	return &Index{factory: f, collection: collection}
}

// Index is a search.Index backed by one Typesense collection.
type Index struct {
	factory    *Factory
	collection string
}

var _ search.Index = (*Index)(nil)

func escapeValue(input string) string {
	escaped := strings.ReplaceAll(input, "`", "\\`")
	return "`" + escaped + "`"
}

func (i *Index) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, int, error) {
	key, err := i.factory.apiKey.APIKey(ctx)
	if err != nil {
		return nil, 0, err
	}

	fullURL := i.factory.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, 0, docerr.Processing("failed to encode typesense request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, 0, docerr.Dependency("failed to build typesense request", err)
	}
	req.Header.Set("x-typesense-api-key", key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := i.factory.httpClient.Do(req)
	if err != nil {
		return nil, 0, docerr.Dependency("failed to reach typesense", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, docerr.Dependency("failed to read typesense response", err)
	}
	return data, resp.StatusCode, nil
}

func (i *Index) schema() *tsapi.CollectionSchema {
	return &tsapi.CollectionSchema{
		Name: i.collection,
		Fields: []tsapi.Field{
			{Name: "id", Type: "string"},
			{Name: "version", Type: "string", Facet: pointer.True()},
			{Name: "entry_type", Type: "string", Facet: pointer.True()},
			{Name: "document_box", Type: "string", Facet: pointer.True()},
			{Name: "folder_id", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "item_type", Type: "string", Facet: pointer.True()},
			{Name: "item_id", Type: "string", Facet: pointer.True()},
			{Name: "name", Type: "string"},
			{Name: "value", Type: "string", Optional: pointer.True()},
			{Name: "mime", Type: "string", Optional: pointer.True()},
			{Name: "created_at", Type: "int64", Facet: pointer.True()},
			{Name: "created_by", Type: "string", Optional: pointer.True(), Facet: pointer.True()},
			{Name: "page", Type: "int32", Optional: pointer.True()},
			{Name: "page_content", Type: "string", Optional: pointer.True()},
		},
	}
}

func (i *Index) CreateIndex(ctx context.Context) error {
	admin, err := i.factory.adminClient(ctx)
	if err != nil {
		return err
	}
	if _, err := admin.Collections().Create(ctx, i.schema()); err != nil && !isConflict(err) {
		return docerr.Dependency("failed to create search index", err)
	}
	return nil
}

func (i *Index) IndexExists(ctx context.Context) (bool, error) {
	admin, err := i.factory.adminClient(ctx)
	if err != nil {
		return false, err
	}
	if _, err := admin.Collection(i.collection).Retrieve(ctx); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, docerr.Dependency("failed to check search index", err)
	}
	return true, nil
}

func (i *Index) DeleteIndex(ctx context.Context) error {
	admin, err := i.factory.adminClient(ctx)
	if err != nil {
		return err
	}
	if _, err := admin.Collection(i.collection).Delete(ctx); err != nil && !isNotFound(err) {
		return docerr.Dependency("failed to delete search index", err)
	}
	return nil
}

// isNotFound recognizes a missing-collection response. The admin client
// doesn't expose a typed not-found error, so this matches on the status
// text Typesense embeds in the error message.
func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "404") || strings.Contains(err.Error(), "Not Found")
}

// isConflict recognizes an already-exists response, which CreateIndex
// folds into success.
func isConflict(err error) bool {
	return strings.Contains(err.Error(), "409") || strings.Contains(err.Error(), "already exists")
}

func toRoot(item search.IndexData) rootEntry {
	var folderID *string
	if item.FolderID != nil {
		s := item.FolderID.String()
		folderID = &s
	}
	var createdBy *string
	if item.CreatedBy != nil {
		s := string(*item.CreatedBy)
		createdBy = &s
	}
	return rootEntry{
		ItemType:    item.Type,
		ItemID:      item.ItemID,
		FolderID:    folderID,
		DocumentBox: string(item.DocumentBox),
		Name:        item.Name,
		Value:       item.Content,
		Mime:        item.Mime,
		CreatedAt:   item.CreatedAt.Unix(),
		CreatedBy:   createdBy,
	}
}

func (i *Index) bulkImport(ctx context.Context, docs []document) error {
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, d := range docs {
		encoded, err := json.Marshal(d)
		if err != nil {
			return docerr.Processing("failed to encode search document", err)
		}
		buf.Write(encoded)
		buf.WriteByte('\n')
	}

	key, err := i.factory.apiKey.APIKey(ctx)
	if err != nil {
		return err
	}
	importURL := fmt.Sprintf("%s/collections/%s/documents/import?action=upsert", i.factory.baseURL, i.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, importURL, &buf)
	if err != nil {
		return docerr.Dependency("failed to build bulk import request", err)
	}
	req.Header.Set("x-typesense-api-key", key)
	resp, err := i.factory.httpClient.Do(req)
	if err != nil {
		return docerr.Dependency("failed to bulk import search documents", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return docerr.Dependency(fmt.Sprintf("search bulk import failed: %s", string(body)), nil)
	}
	return nil
}

func (i *Index) AddData(ctx context.Context, items []search.IndexData) error {
	var docs []document
	for _, item := range items {
		root := toRoot(item)
		for _, page := range item.Pages {
			docs = append(docs, newPageDocument(uuid.NewString(), root, page.Page, page.Content))
		}
		docs = append(docs, newRootDocument(uuid.NewString(), root))
	}
	return i.bulkImport(ctx, docs)
}

func (i *Index) deleteByFilter(ctx context.Context, filterBy string) error {
	query := url.Values{"filter_by": {filterBy}}
	path := fmt.Sprintf("/collections/%s/documents", i.collection)
	data, status, err := i.do(ctx, http.MethodDelete, path, query, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return docerr.Dependency(fmt.Sprintf("search delete failed: %s", string(data)), nil)
	}
	return nil
}

func (i *Index) DeleteData(ctx context.Context, itemID string) error {
	return i.deleteByFilter(ctx, fmt.Sprintf(`item_id:=%s`, escapeValue(itemID)))
}

func (i *Index) DeleteByScope(ctx context.Context, scope models.DocumentBoxScope) error {
	return i.deleteByFilter(ctx, fmt.Sprintf(`document_box:=%s`, escapeValue(string(scope))))
}

func (i *Index) getRoot(ctx context.Context, itemID string) (*rootEntry, error) {
	query := url.Values{
		"filter_by": {fmt.Sprintf(`item_id:=%s&&entry_type:=Root`, escapeValue(itemID))},
	}
	path := fmt.Sprintf("/collections/%s/documents/search", i.collection)
	data, status, err := i.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, docerr.Dependency(fmt.Sprintf("failed to resolve search root document: %s", string(data)), nil)
	}
	var result searchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, docerr.Processing("failed to decode search root document", err)
	}
	if len(result.Hits) == 0 {
		return nil, nil
	}
	root := result.Hits[0].Document.rootEntry
	return &root, nil
}

func (i *Index) UpdateData(ctx context.Context, itemID string, partial search.UpdateData) error {
	patch := map[string]any{}
	if partial.FolderID != nil {
		patch["folder_id"] = partial.FolderID.String()
	}
	if partial.Name != nil {
		patch["name"] = *partial.Name
	}
	if partial.Content != nil {
		patch["value"] = *partial.Content
	}

	if len(patch) > 0 {
		query := url.Values{"filter_by": {fmt.Sprintf(`item_id:=%s`, escapeValue(itemID))}}
		path := fmt.Sprintf("/collections/%s/documents", i.collection)
		data, status, err := i.do(ctx, http.MethodPatch, path, query, patch)
		if err != nil {
			return err
		}
		if status >= 300 {
			return docerr.Dependency(fmt.Sprintf("search update failed: %s", string(data)), nil)
		}
	}

	if partial.Pages == nil {
		return nil
	}

	if err := i.deleteByFilter(ctx, fmt.Sprintf(`item_id:=%s&&entry_type:=Page`, escapeValue(itemID))); err != nil {
		return err
	}

	root, err := i.getRoot(ctx, itemID)
	if err != nil {
		return err
	}
	if root == nil {
		return docerr.Processing("search index is missing its root document for this item", nil)
	}
	if partial.FolderID != nil {
		s := partial.FolderID.String()
		root.FolderID = &s
	}
	if partial.Name != nil {
		root.Name = *partial.Name
	}
	if partial.Content != nil {
		root.Value = partial.Content
	}

	var docs []document
	for _, page := range partial.Pages {
		docs = append(docs, newPageDocument(uuid.NewString(), *root, page.Page, page.Content))
	}
	return i.bulkImport(ctx, docs)
}

// buildScopeFilter builds the document_box clause: exact scopes become
// one `:=[...]` membership test, wildcard-suffixed scopes become prefix
// matches joined in with ||.
func buildScopeFilter(scopes []models.DocumentBoxScope) string {
	var exact []string
	var parts []string
	for _, s := range scopes {
		if s.IsWildcard() {
			parts = append(parts, fmt.Sprintf("document_box:%s*", s.Prefix()))
		} else {
			exact = append(exact, escapeValue(string(s)))
		}
	}
	if len(exact) > 0 {
		parts = append(parts, fmt.Sprintf("document_box:=[%s]", strings.Join(exact, ", ")))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " || ") + ")"
}

func buildSearchFilters(scopes []models.DocumentBoxScope, req search.Request, folderSubtree []models.FolderID) string {
	filters := []string{buildScopeFilter(scopes)}

	if len(folderSubtree) > 0 {
		ids := make([]string, len(folderSubtree))
		for idx, id := range folderSubtree {
			ids[idx] = id.String()
		}
		filters = append(filters, fmt.Sprintf("folder_id:=[%s]", strings.Join(ids, ", ")))
	}

	if req.CreatedAt != nil {
		if req.CreatedAt.Start != nil {
			filters = append(filters, fmt.Sprintf("created_at:>%d", req.CreatedAt.Start.Unix()))
		}
		if req.CreatedAt.End != nil {
			filters = append(filters, fmt.Sprintf("created_at:<%d", req.CreatedAt.End.Unix()))
		}
	}

	if req.CreatedBy != nil {
		filters = append(filters, fmt.Sprintf("created_by:=%s", escapeValue(string(*req.CreatedBy))))
	}

	if req.FolderID != nil {
		filters = append(filters, fmt.Sprintf("folder_id:=%s", req.FolderID.String()))
	}

	return strings.Join(filters, "&&")
}

func (i *Index) SearchIndex(ctx context.Context, scopes []models.DocumentBoxScope, req search.Request, folderSubtree *models.FolderID) (search.Results, error) {
	var queryBy []string
	if req.IncludeName {
		queryBy = append(queryBy, "name")
	}
	if req.IncludeContent {
		queryBy = append(queryBy, "value", "page_content")
	}

	query := ""
	if req.Query != nil {
		query = *req.Query
	}

	var subtree []models.FolderID
	if folderSubtree != nil {
		subtree = []models.FolderID{*folderSubtree}
	}
	filterBy := buildSearchFilters(scopes, req, subtree)

	if len(queryBy) == 0 {
		if query != "" && filterBy != "" {
			return search.Results{}, docerr.InvalidInput("a search query requires include_name or include_content")
		}
		queryBy = []string{"name"}
	}

	hasWildcard := false
	for _, s := range scopes {
		if s.IsWildcard() {
			hasWildcard = true
			break
		}
	}
	maxCandidates := 4
	if hasWildcard {
		maxCandidates = 10000
	}

	size := req.Size
	if size == 0 {
		size = 50
	}
	maxPages := req.MaxPages
	if maxPages == 0 {
		maxPages = 3
	}

	body := map[string]any{
		"searches": []map[string]any{
			{
				"collection":                 i.collection,
				"q":                          query,
				"query_by":                   strings.Join(queryBy, ","),
				"group_by":                   "item_id",
				"group_limit":                maxPages,
				"offset":                     req.Offset,
				"limit":                      size,
				"filter_by":                  filterBy,
				"exclude_fields":             "page_content",
				"highlight_fields":           "name,value,page_content",
				"highlight_start_tag":        "<em>",
				"highlight_end_tag":          "</em>",
				"max_filter_by_candidates":   maxCandidates,
			},
		},
	}

	data, status, err := i.do(ctx, http.MethodPost, "/multi_search", nil, body)
	if err != nil {
		return search.Results{}, err
	}
	if status >= 300 {
		return search.Results{}, docerr.Dependency(fmt.Sprintf("search query failed: %s", string(data)), nil)
	}

	var resp multiSearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return search.Results{}, docerr.Processing("failed to decode search response", err)
	}
	if len(resp.Results) == 0 {
		return search.Results{}, docerr.Dependency("search response was missing its result set", nil)
	}
	result := resp.Results[0]

	var hits []search.Hit
	for _, group := range result.GroupedHits {
		if len(group.Hits) == 0 {
			continue
		}
		root := group.Hits[0].Document.rootEntry

		var maxScore int64
		nameMatch := false
		contentMatch := false
		var pageMatches []search.PageMatch
		for _, h := range group.Hits {
			if h.TextMatch > maxScore {
				maxScore = h.TextMatch
			}
			for _, hl := range h.Highlights {
				if hl.Field == "name" {
					nameMatch = true
				}
				if hl.Field == "value" || hl.Field == "page_content" {
					contentMatch = true
				}
			}
			if h.Document.EntryType == entryTypePage {
				for _, hl := range h.Highlights {
					if hl.Field == "page_content" {
						page := 0
						if h.Document.Page != nil {
							page = *h.Document.Page
						}
						pageMatches = append(pageMatches, search.PageMatch{Page: page, Matches: []string{hl.Snippet}})
					}
				}
			}
		}

		documentBoxID := models.DocumentBoxScope(root.DocumentBox)
		hits = append(hits, search.Hit{
			ItemType:     root.ItemType,
			ItemID:       root.ItemID,
			DocumentBox:  documentBoxID,
			Score:        search.IntScore(maxScore),
			NameMatch:    nameMatch,
			ContentMatch: contentMatch,
			TotalHits:    group.Found,
			PageMatches:  pageMatches,
		})
	}

	return search.Results{Hits: hits, TotalHits: result.Found}, nil
}

func (i *Index) SearchIndexFile(ctx context.Context, scope models.DocumentBoxScope, fileID string, req search.Request) (search.Results, error) {
	offset := req.Offset
	size := req.Size
	if size == 0 {
		size = 50
	}
	query := ""
	if req.Query != nil {
		query = *req.Query
	}

	filterBy := fmt.Sprintf(`document_box:=%s&&item_id:=%s&&entry_type:=Page`, escapeValue(string(scope)), fileID)

	body := map[string]any{
		"searches": []map[string]any{
			{
				"collection":                i.collection,
				"q":                         query,
				"query_by":                  "page_content",
				"offset":                    offset,
				"limit":                     size,
				"filter_by":                 filterBy,
				"exclude_fields":            "page_content",
				"highlight_fields":          "page_content",
				"highlight_start_tag":       "<em>",
				"highlight_end_tag":         "</em>",
				"highlight_affix_num_tokens": 15,
			},
		},
	}

	data, status, err := i.do(ctx, http.MethodPost, "/multi_search", nil, body)
	if err != nil {
		return search.Results{}, err
	}
	if status >= 300 {
		return search.Results{}, docerr.Dependency(fmt.Sprintf("file search query failed: %s", string(data)), nil)
	}

	var resp multiSearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return search.Results{}, docerr.Processing("failed to decode file search response", err)
	}
	if len(resp.Results) == 0 {
		return search.Results{}, docerr.Dependency("search response was missing its result set", nil)
	}
	result := resp.Results[0]

	var hits []search.Hit
	for _, h := range result.Hits {
		if h.Document.EntryType != entryTypePage {
			continue
		}
		var snippet string
		for _, hl := range h.Highlights {
			if hl.Field == "page_content" {
				snippet = hl.Snippet
			}
		}
		if snippet == "" {
			continue
		}
		page := 0
		if h.Document.Page != nil {
			page = *h.Document.Page
		}
		hits = append(hits, search.Hit{
			ItemType:    search.ItemFile,
			ItemID:      fileID,
			DocumentBox: scope,
			Score:       search.IntScore(h.TextMatch),
			PageMatches: []search.PageMatch{{Page: page, Matches: []string{snippet}}},
		})
	}

	return search.Results{Hits: hits, TotalHits: result.Found}, nil
}

// GetPendingMigrations reports none: Typesense's schema lives entirely in
// the collection definition created by CreateIndex, so there is nothing
// a migration would need to alter incrementally.
func (i *Index) GetPendingMigrations(applied []models.TenantMigration) []search.Migration {
	return nil
}

func (i *Index) ApplyMigration(ctx context.Context, m search.Migration) error {
	return m.Apply(ctx, i)
}
