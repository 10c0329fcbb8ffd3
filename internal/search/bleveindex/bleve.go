// Package bleveindex is docbox's self-hosted/embedded search backend,
// playing the role the original system's OpenSearch backend played:
// nested per-item documents with a pages sub-collection, and an
// edge-ngram analyzer on name for prefix search. Grounded in the
// teacher's own bleve-backed keyword index.
package bleveindex

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/token/edgengram"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
	bsearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/search"
)

const edgeNgramAnalyzerName = "docbox_edge_ngram"

// document is the on-disk shape of one bleve document: one per indexed
// item, root fields plus a JSON-encoded Pages sub-collection.
type document struct {
	ItemType    string    `json:"item_type"`
	ItemID      string    `json:"item_id"`
	FolderID    string    `json:"folder_id,omitempty"`
	DocumentBox string    `json:"document_box"`
	Name        string    `json:"name"`
	Mime        string    `json:"mime,omitempty"`
	Content     string    `json:"content"`
	PagesJSON   string    `json:"pages_json"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

// Factory builds one bleve.Index per tenant, rooted under a shared
// directory, mirroring the teacher's single-process-local-index model.
type Factory struct {
	baseDir string
}

// NewFactory roots every tenant's index under baseDir/<index name>.
func NewFactory(baseDir string) *Factory {
	return &Factory{baseDir: baseDir}
}

// Type identifies this factory to the generic search.Factory registry.
func (f *Factory) Type() search.BackendType { return search.BackendSelfHosted }

// ForTenant satisfies search.Backend, opening or creating the bleve
// index named by tenant.SearchIndexName.
func (f *Factory) ForTenant(tenant *models.Tenant) (search.Index, error) {
	return f.ForIndexName(tenant.SearchIndexName)
}

// ForIndexName opens or creates the bleve index for the given index name.
func (f *Factory) ForIndexName(indexName string) (*Index, error) {
	path := filepath.Join(f.baseDir, indexName)
	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, err
		}
		return &Index{index: idx, path: path}, nil
	}

	mapping, err := buildMapping()
	if err != nil {
		return nil, err
	}
	idx, err := bleve.New(path, mapping)
	if err != nil {
		return nil, err
	}
	return &Index{index: idx, path: path}, nil
}

func buildMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	if err := im.AddCustomTokenFilter("docbox_edge_ngram_filter", map[string]interface{}{
		"type": edgengram.Name,
		"min":  float64(2),
		"max":  float64(15),
		"side": "front",
	}); err != nil {
		return nil, err
	}
	if err := im.AddCustomAnalyzer(edgeNgramAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": single.Name,
		"token_filters": []string{
			"to_lower",
			"docbox_edge_ngram_filter",
		},
	}); err != nil {
		return nil, err
	}

	doc := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = edgeNgramAnalyzerName
	doc.AddFieldMappingsAt("name", nameField)

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	doc.AddFieldMappingsAt("content", contentField)

	keyword := bleve.NewKeywordFieldMapping()
	doc.AddFieldMappingsAt("item_type", keyword)
	doc.AddFieldMappingsAt("item_id", keyword)
	doc.AddFieldMappingsAt("folder_id", keyword)
	doc.AddFieldMappingsAt("document_box", keyword)
	doc.AddFieldMappingsAt("mime", keyword)
	doc.AddFieldMappingsAt("created_by", keyword)

	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.Store = true
	doc.AddFieldMappingsAt("pages_json", stored)

	im.DefaultMapping = doc
	return im, nil
}

// Index is the per-tenant bleve-backed search.Index implementation.
type Index struct {
	index bleve.Index
	path  string
}

func (i *Index) CreateIndex(ctx context.Context) error { return nil }

func (i *Index) DeleteIndex(ctx context.Context) error {
	if err := i.index.Close(); err != nil {
		return err
	}
	return os.RemoveAll(i.path)
}

func (i *Index) IndexExists(ctx context.Context) (bool, error) { return true, nil }

func (i *Index) AddData(ctx context.Context, items []search.IndexData) error {
	batch := i.index.NewBatch()
	for _, item := range items {
		doc, err := toDocument(item)
		if err != nil {
			return err
		}
		if err := batch.Index(item.ItemID, doc); err != nil {
			return err
		}
	}
	return i.index.Batch(batch)
}

func (i *Index) UpdateData(ctx context.Context, itemID string, partial search.UpdateData) error {
	existing, found, err := i.lookup(itemID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("item %q not found in search index", itemID)
	}
	if partial.FolderID != nil {
		existing.FolderID = partial.FolderID.String()
	}
	if partial.Name != nil {
		existing.Name = *partial.Name
	}
	if partial.Content != nil {
		existing.Content = *partial.Content
	}
	if partial.Pages != nil {
		pagesJSON, err := json.Marshal(toSearchPages(partial.Pages))
		if err != nil {
			return err
		}
		existing.PagesJSON = string(pagesJSON)
	}
	return i.index.Index(itemID, existing)
}

func (i *Index) DeleteData(ctx context.Context, itemID string) error {
	return i.index.Delete(itemID)
}

func (i *Index) DeleteByScope(ctx context.Context, scope models.DocumentBoxScope) error {
	query := bleve.NewTermQuery(string(scope))
	query.SetField("document_box")
	req := bleve.NewSearchRequest(query)
	req.Size = 10000
	res, err := i.index.Search(req)
	if err != nil {
		return err
	}
	batch := i.index.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}
	return i.index.Batch(batch)
}

func (i *Index) SearchIndex(ctx context.Context, scopes []models.DocumentBoxScope, req search.Request, folderSubtree *models.FolderID) (search.Results, error) {
	if !req.HasTargets() {
		return search.Results{}, fmt.Errorf("no query targets specified")
	}

	bq := bleve.NewConjunctionQuery(scopeQuery(scopes))
	if req.Query != nil && *req.Query != "" {
		inner := bleve.NewDisjunctionQuery()
		if req.IncludeName {
			nq := bleve.NewMatchQuery(*req.Query)
			nq.SetField("name")
			inner.AddQuery(nq)
		}
		if req.IncludeContent {
			cq := bleve.NewMatchQuery(*req.Query)
			cq.SetField("content")
			inner.AddQuery(cq)
		}
		bq.AddQuery(inner)
	}
	if req.ItemID != nil {
		q := bleve.NewTermQuery(*req.ItemID)
		q.SetField("item_id")
		bq.AddQuery(q)
	}

	size := req.Size
	if size <= 0 {
		size = 20
	}
	sr := bleve.NewSearchRequestOptions(bq, size, req.Offset, false)
	sr.Fields = []string{"*"}

	res, err := i.index.Search(sr)
	if err != nil {
		return search.Results{}, err
	}

	out := make([]search.Hit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc, err := fromSearchHit(hit)
		if err != nil {
			continue
		}
		nameMatch := req.Query != nil && req.IncludeName && strings.Contains(strings.ToLower(doc.Name), strings.ToLower(*req.Query))
		contentMatch := req.Query != nil && req.IncludeContent && strings.Contains(strings.ToLower(doc.Content), strings.ToLower(*req.Query))
		out = append(out, search.Hit{
			ItemType:     search.ItemType(doc.ItemType),
			ItemID:       doc.ItemID,
			DocumentBox:  models.DocumentBoxScope(doc.DocumentBox),
			Score:        search.FloatScore(hit.Score),
			NameMatch:    nameMatch,
			ContentMatch: contentMatch,
			TotalHits:    countPages(doc.PagesJSON),
		})
	}
	return search.Results{Hits: out, TotalHits: int(res.Total)}, nil
}

// SearchIndexFile is not supported by this backend: its per-item
// document shape has no per-page documents to rank, so callers must
// feature-detect and fall back per the search contract's capability
// rules.
func (i *Index) SearchIndexFile(ctx context.Context, scope models.DocumentBoxScope, fileID string, req search.Request) (search.Results, error) {
	return search.Results{}, search.ErrNotSupported
}

func (i *Index) GetPendingMigrations(applied []models.TenantMigration) []search.Migration { return nil }

func (i *Index) ApplyMigration(ctx context.Context, m search.Migration) error { return m.Apply(ctx, i) }

func scopeQuery(scopes []models.DocumentBoxScope) query.Query {
	dq := bleve.NewDisjunctionQuery()
	for _, s := range scopes {
		if s.IsWildcard() {
			q := bleve.NewWildcardQuery(s.Prefix() + "*")
			q.SetField("document_box")
			dq.AddQuery(q)
			continue
		}
		q := bleve.NewTermQuery(string(s))
		q.SetField("document_box")
		dq.AddQuery(q)
	}
	return dq
}

func countPages(pagesJSON string) int {
	if pagesJSON == "" {
		return 0
	}
	var pages []search.Page
	if err := json.Unmarshal([]byte(pagesJSON), &pages); err != nil {
		return 0
	}
	return len(pages)
}

func toSearchPages(pages []search.Page) []search.Page { return pages }

func toDocument(item search.IndexData) (document, error) {
	pagesJSON, err := json.Marshal(item.Pages)
	if err != nil {
		return document{}, err
	}
	d := document{
		ItemType:    string(item.Type),
		ItemID:      item.ItemID,
		DocumentBox: string(item.DocumentBox),
		Name:        item.Name,
		PagesJSON:   string(pagesJSON),
		CreatedAt:   item.CreatedAt,
	}
	if item.FolderID != nil {
		d.FolderID = item.FolderID.String()
	}
	if item.Mime != nil {
		d.Mime = *item.Mime
	}
	if item.Content != nil {
		d.Content = *item.Content
	}
	if item.CreatedBy != nil {
		d.CreatedBy = string(*item.CreatedBy)
	}
	return d, nil
}

// lookup fetches the current document for itemID by running a term
// query rather than reading bleve's raw index.Document, since the term
// query path already gives back flattened stored field values.
func (i *Index) lookup(itemID string) (document, bool, error) {
	q := bleve.NewTermQuery(itemID)
	q.SetField("item_id")
	req := bleve.NewSearchRequest(q)
	req.Size = 1
	req.Fields = []string{"*"}

	res, err := i.index.Search(req)
	if err != nil {
		return document{}, false, err
	}
	if len(res.Hits) == 0 {
		return document{}, false, nil
	}
	d, err := fromSearchHit(res.Hits[0])
	if err != nil {
		return document{}, false, err
	}
	return d, true, nil
}

func fromSearchHit(hit *bsearch.DocumentMatch) (document, error) {
	d := document{}
	for k, v := range hit.Fields {
		s, _ := v.(string)
		switch k {
		case "item_type":
			d.ItemType = s
		case "item_id":
			d.ItemID = s
		case "folder_id":
			d.FolderID = s
		case "document_box":
			d.DocumentBox = s
		case "name":
			d.Name = s
		case "mime":
			d.Mime = s
		case "content":
			d.Content = s
		case "pages_json":
			d.PagesJSON = s
		case "created_by":
			d.CreatedBy = s
		}
	}
	return d, nil
}
