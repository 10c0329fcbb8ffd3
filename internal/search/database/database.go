// Package database implements the docbox search contract directly
// against the tenant Postgres database, using tsvector columns instead
// of a dedicated search service. It trades search quality and load
// isolation for operational simplicity: no second service to run, and
// search results are always as fresh as the database itself.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docbox-nz/docbox/internal/db"
	"github.com/docbox-nz/docbox/internal/dbpool"
	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/search"
)

// Factory builds per-tenant Index handles sourced from the tenant
// database pool cache.
type Factory struct {
	pools *dbpool.Cache
}

// NewFactory builds a Factory over pools, the same cache used for
// ordinary entity queries.
func NewFactory(pools *dbpool.Cache) *Factory {
	return &Factory{pools: pools}
}

// Type identifies this factory to the generic search.Factory registry.
func (f *Factory) Type() search.BackendType { return search.BackendDatabase }

// ForTenant returns the Index for tenant, satisfying search.Backend.
func (f *Factory) ForTenant(tenant *models.Tenant) (search.Index, error) {
	return &Index{
		acquire: func(ctx context.Context) (*pgxpool.Pool, error) {
			return f.pools.GetTenantPool(ctx, tenant)
		},
	}, nil
}

// Index is a search.Index backed by the tenant database itself.
type Index struct {
	acquire func(ctx context.Context) (*pgxpool.Pool, error)
}

// ForPool builds an Index directly over an already-open pool, for tests
// that don't want to go through the tenant pool cache.
func ForPool(pool *pgxpool.Pool) *Index {
	return &Index{acquire: func(ctx context.Context) (*pgxpool.Pool, error) { return pool, nil }}
}

var _ search.Index = (*Index)(nil)

// CreateIndex is a no-op: the tenant migrations that add the tsvector
// columns and the docbox_files_pages table are the "index creation" for
// this backend, applied through ApplyMigration like any other schema
// change.
func (i *Index) CreateIndex(ctx context.Context) error { return nil }

func (i *Index) DeleteIndex(ctx context.Context) error { return nil }

// IndexExists always reports false. Unlike the other two backends this
// one has no separate collection/index resource the provisioner needs to
// detect — its "index" is just columns on tables that already exist
// whenever the tenant does, so a true answer here would short-circuit
// migration bootstrapping that still needs to run.
func (i *Index) IndexExists(ctx context.Context) (bool, error) { return false, nil }

func (i *Index) AddData(ctx context.Context, items []search.IndexData) error {
	pool, err := i.acquire(ctx)
	if err != nil {
		return err
	}

	for _, item := range items {
		if len(item.Pages) == 0 {
			continue
		}

		var sb strings.Builder
		sb.WriteString(`INSERT INTO docbox_files_pages (file_id, page, content) VALUES `)
		args := []any{item.ItemID}
		for idx, page := range item.Pages {
			if idx > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "($1, $%d, $%d)", len(args)+1, len(args)+2)
			args = append(args, page.Page, page.Content)
		}

		if _, err := pool.Exec(ctx, sb.String(), args...); err != nil {
			return docerr.Dependency("failed to index file pages", err)
		}
	}
	return nil
}

// UpdateData is a no-op: page content is never edited in place by this
// backend. All other fields (name, folder, mime) are read live off the
// entity tables at query time, so there is nothing to refresh.
func (i *Index) UpdateData(ctx context.Context, itemID string, partial search.UpdateData) error {
	return nil
}

func (i *Index) DeleteData(ctx context.Context, itemID string) error {
	pool, err := i.acquire(ctx)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, `DELETE FROM docbox_files_pages WHERE file_id = $1`, itemID); err != nil {
		return docerr.Dependency("failed to delete indexed file pages", err)
	}
	return nil
}

// DeleteByScope deletes every page row belonging to files within scope.
// Folder/link rows need no cleanup here: this backend has nothing else
// to store for them, and the owning entity rows are removed by the
// caller's own database delete.
func (i *Index) DeleteByScope(ctx context.Context, scope models.DocumentBoxScope) error {
	pool, err := i.acquire(ctx)
	if err != nil {
		return err
	}
	const query = `
DELETE FROM docbox_files_pages
WHERE file_id IN (SELECT id FROM files WHERE folder_id IN (SELECT id FROM folders WHERE document_box = $1))`
	if _, err := pool.Exec(ctx, query, string(scope)); err != nil {
		return docerr.Dependency("failed to delete indexed file pages by scope", err)
	}
	return nil
}

// scopeFilters partitions query scopes into exact values and LIKE
// patterns for wildcard-suffixed scopes.
func scopeFilters(scopes []models.DocumentBoxScope) (exact []string, patterns []string) {
	for _, s := range scopes {
		if s.IsWildcard() {
			patterns = append(patterns, likeEscape(s.Prefix())+"%")
		} else {
			exact = append(exact, string(s))
		}
	}
	return exact, patterns
}

// likeEscape escapes LIKE metacharacters in a literal prefix.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

// argList numbers query arguments as they are appended, so the three
// UNION arms can share placeholders without hand-counting them.
type argList struct {
	args []any
}

func (a *argList) add(v any) string {
	a.args = append(a.args, v)
	return fmt.Sprintf("$%d", len(a.args))
}

func (i *Index) SearchIndex(ctx context.Context, scopes []models.DocumentBoxScope, req search.Request, folderSubtree *models.FolderID) (search.Results, error) {
	pool, err := i.acquire(ctx)
	if err != nil {
		return search.Results{}, err
	}

	queryText := ""
	if req.Query != nil {
		queryText = *req.Query
	}
	if queryText != "" && !req.HasTargets() {
		return search.Results{}, docerr.InvalidInput("a search query requires include_name or include_content")
	}

	size := req.Size
	if size == 0 {
		size = 50
	}

	var subtree []string
	if folderSubtree != nil {
		ids, err := db.FolderSubtreeIDs(ctx, pool, *folderSubtree)
		if err != nil {
			return search.Results{}, err
		}
		subtree = make([]string, len(ids))
		for idx, id := range ids {
			subtree[idx] = id.String()
		}
	}

	var args argList
	qp := args.add(queryText)
	exact, patterns := scopeFilters(scopes)
	exactP := args.add(exact)
	patternsP := args.add(patterns)
	nameP := args.add(req.IncludeName)
	contentP := args.add(req.IncludeContent)

	scopeCond := func(col string) string {
		return fmt.Sprintf("(%s = ANY(%s) OR %s LIKE ANY(%s))", col, exactP, col, patternsP)
	}
	tsq := fmt.Sprintf("plainto_tsquery('english', %s)", qp)

	folderCond := []string{scopeCond("f.document_box")}
	fileCond := []string{scopeCond("fo.document_box")}
	linkCond := []string{scopeCond("fo.document_box")}

	if len(subtree) > 0 {
		subtreeP := args.add(subtree)
		folderCond = append(folderCond, fmt.Sprintf("f.folder_id::text = ANY(%s)", subtreeP))
		fileCond = append(fileCond, fmt.Sprintf("fl.folder_id::text = ANY(%s)", subtreeP))
		linkCond = append(linkCond, fmt.Sprintf("l.folder_id::text = ANY(%s)", subtreeP))
	}
	if req.ItemID != nil {
		itemP := args.add(*req.ItemID)
		folderCond = append(folderCond, fmt.Sprintf("f.id::text = %s", itemP))
		fileCond = append(fileCond, fmt.Sprintf("fl.id::text = %s", itemP))
		linkCond = append(linkCond, fmt.Sprintf("l.id::text = %s", itemP))
	}
	if req.Mime != nil {
		mimeP := args.add(*req.Mime)
		// Only files carry a mime type.
		folderCond = append(folderCond, "false")
		fileCond = append(fileCond, fmt.Sprintf("fl.mime = %s", mimeP))
		linkCond = append(linkCond, "false")
	}
	if req.CreatedBy != nil {
		byP := args.add(string(*req.CreatedBy))
		folderCond = append(folderCond, fmt.Sprintf("f.created_by = %s", byP))
		fileCond = append(fileCond, fmt.Sprintf("fl.created_by = %s", byP))
		linkCond = append(linkCond, fmt.Sprintf("l.created_by = %s", byP))
	}
	if req.CreatedAt != nil {
		if req.CreatedAt.Start != nil {
			startP := args.add(*req.CreatedAt.Start)
			folderCond = append(folderCond, fmt.Sprintf("f.created_at >= %s", startP))
			fileCond = append(fileCond, fmt.Sprintf("fl.created_at >= %s", startP))
			linkCond = append(linkCond, fmt.Sprintf("l.created_at >= %s", startP))
		}
		if req.CreatedAt.End != nil {
			endP := args.add(*req.CreatedAt.End)
			folderCond = append(folderCond, fmt.Sprintf("f.created_at <= %s", endP))
			fileCond = append(fileCond, fmt.Sprintf("fl.created_at <= %s", endP))
			linkCond = append(linkCond, fmt.Sprintf("l.created_at <= %s", endP))
		}
	}
	// Non-root folders only; root folders are never indexed.
	folderCond = append(folderCond, "f.folder_id IS NOT NULL")

	maxPages := req.MaxPages
	if maxPages == 0 {
		maxPages = 3
	}
	maxPagesP := args.add(maxPages)
	pagesOffsetP := args.add(req.PagesOffset)
	sizeP := args.add(size)
	offsetP := args.add(req.Offset)

	// File rows carry two extra columns the other arms stub out: the
	// count of pages matching the content query (the hit's total_hits)
	// and up to max_pages ts_headline snippets aggregated as JSON (the
	// hit's page_matches).
	query := fmt.Sprintf(`
WITH matches AS (
	SELECT
		'Folder'::text AS item_type, f.id::text AS item_id, f.document_box,
		CASE WHEN %[1]s = '' THEN 0 ELSE ts_rank_cd(f.name_tsvector, %[2]s) END AS rank,
		(%[3]s AND %[1]s != '' AND f.name_tsvector @@ %[2]s) AS name_match,
		false AS content_match,
		0 AS page_total,
		NULL::text AS pages_json
	FROM folders f
	WHERE %[5]s
	UNION ALL
	SELECT
		'File'::text, fl.id::text, fo.document_box,
		CASE WHEN %[1]s = '' THEN 0 ELSE GREATEST(
			ts_rank_cd(fl.name_tsvector, %[2]s),
			COALESCE((SELECT MAX(ts_rank_cd(p.content_tsvector, %[2]s)) FROM docbox_files_pages p WHERE p.file_id = fl.id), 0)
		) END,
		(%[3]s AND %[1]s != '' AND fl.name_tsvector @@ %[2]s),
		(%[4]s AND %[1]s != '' AND EXISTS (
			SELECT 1 FROM docbox_files_pages p2 WHERE p2.file_id = fl.id AND p2.content_tsvector @@ %[2]s)),
		CASE WHEN %[4]s AND %[1]s != '' THEN
			(SELECT count(*)::int FROM docbox_files_pages pc
			 WHERE pc.file_id = fl.id AND pc.content_tsvector @@ %[2]s)
		ELSE 0 END,
		CASE WHEN %[4]s AND %[1]s != '' THEN
			(SELECT json_agg(json_build_object('page', pm.page, 'snippet', pm.snippet))::text FROM (
				SELECT ph.page, ts_headline('english', ph.content, %[2]s) AS snippet
				FROM docbox_files_pages ph
				WHERE ph.file_id = fl.id AND ph.content_tsvector @@ %[2]s
				ORDER BY ph.page
				LIMIT %[8]s OFFSET %[9]s) pm)
		ELSE NULL END
	FROM files fl
	JOIN folders fo ON fo.id = fl.folder_id
	WHERE %[6]s
	UNION ALL
	SELECT
		'Link'::text, l.id::text, fo.document_box,
		CASE WHEN %[1]s = '' THEN 0 ELSE GREATEST(
			ts_rank_cd(l.name_tsvector, %[2]s),
			ts_rank_cd(l.value_tsvector, %[2]s)
		) END,
		(%[3]s AND %[1]s != '' AND l.name_tsvector @@ %[2]s),
		(%[4]s AND %[1]s != '' AND l.value_tsvector @@ %[2]s),
		0,
		NULL::text
	FROM links l
	JOIN folders fo ON fo.id = l.folder_id
	WHERE %[7]s
)
SELECT item_type, item_id, document_box, rank, name_match, content_match, page_total, pages_json, count(*) OVER() AS total
FROM matches
WHERE (%[1]s = '' OR name_match OR content_match)
ORDER BY rank DESC
LIMIT %[10]s OFFSET %[11]s`,
		qp, tsq, nameP, contentP,
		strings.Join(folderCond, " AND "),
		strings.Join(fileCond, " AND "),
		strings.Join(linkCond, " AND "),
		maxPagesP, pagesOffsetP,
		sizeP, offsetP)

	rows, err := pool.Query(ctx, query, args.args...)
	if err != nil {
		return search.Results{}, docerr.Dependency("failed to search index", err)
	}
	defer rows.Close()

	var hits []search.Hit
	var total int
	for rows.Next() {
		var itemType, itemID, documentBox string
		var rank float64
		var nameMatch, contentMatch bool
		var pageTotal int
		var pagesJSON *string
		if err := rows.Scan(&itemType, &itemID, &documentBox, &rank, &nameMatch, &contentMatch, &pageTotal, &pagesJSON, &total); err != nil {
			return search.Results{}, docerr.Dependency("failed to read search result row", err)
		}
		pageMatches, err := decodePageMatches(pagesJSON)
		if err != nil {
			return search.Results{}, err
		}
		hits = append(hits, search.Hit{
			ItemType:     search.ItemType(itemType),
			ItemID:       itemID,
			DocumentBox:  models.DocumentBoxScope(documentBox),
			Score:        search.FloatScore(rank),
			NameMatch:    nameMatch,
			ContentMatch: contentMatch,
			TotalHits:    pageTotal,
			PageMatches:  pageMatches,
		})
	}
	if err := rows.Err(); err != nil {
		return search.Results{}, docerr.Dependency("failed to iterate search results", err)
	}

	return search.Results{Hits: hits, TotalHits: total}, nil
}

// decodePageMatches unpacks the json_agg'd page snippets a file row
// carries, one PageMatch per matching page.
func decodePageMatches(pagesJSON *string) ([]search.PageMatch, error) {
	if pagesJSON == nil || *pagesJSON == "" {
		return nil, nil
	}
	var rows []struct {
		Page    int    `json:"page"`
		Snippet string `json:"snippet"`
	}
	if err := json.Unmarshal([]byte(*pagesJSON), &rows); err != nil {
		return nil, docerr.Dependency("failed to decode search page matches", err)
	}
	matches := make([]search.PageMatch, len(rows))
	for i, row := range rows {
		matches[i] = search.PageMatch{Page: row.Page, Matches: []string{row.Snippet}}
	}
	return matches, nil
}

func (i *Index) SearchIndexFile(ctx context.Context, scope models.DocumentBoxScope, fileID string, req search.Request) (search.Results, error) {
	pool, err := i.acquire(ctx)
	if err != nil {
		return search.Results{}, err
	}

	queryText := ""
	if req.Query != nil {
		queryText = *req.Query
	}
	size := req.Size
	if size == 0 {
		size = 50
	}

	rows, err := pool.Query(ctx, `
SELECT p.page, ts_headline('english', p.content, plainto_tsquery('english', $1)), count(*) OVER()
FROM docbox_files_pages p
JOIN files fl ON fl.id = p.file_id
JOIN folders fo ON fo.id = fl.folder_id
WHERE p.file_id = $2 AND fo.document_box = $3
  AND ($1 = '' OR p.content_tsvector @@ plainto_tsquery('english', $1))
ORDER BY p.page
LIMIT $4 OFFSET $5`,
		queryText, fileID, string(scope), size, req.Offset)
	if err != nil {
		return search.Results{}, docerr.Dependency("failed to search file pages", err)
	}
	defer rows.Close()

	var pageMatches []search.PageMatch
	var total int
	for rows.Next() {
		var page int
		var snippet string
		if err := rows.Scan(&page, &snippet, &total); err != nil {
			return search.Results{}, docerr.Dependency("failed to read file search result row", err)
		}
		pageMatches = append(pageMatches, search.PageMatch{Page: page, Matches: []string{snippet}})
	}
	if err := rows.Err(); err != nil {
		return search.Results{}, docerr.Dependency("failed to iterate file search results", err)
	}
	if len(pageMatches) == 0 {
		return search.Results{TotalHits: 0}, nil
	}

	return search.Results{
		Hits: []search.Hit{{
			ItemType:    search.ItemFile,
			ItemID:      fileID,
			DocumentBox: scope,
			PageMatches: pageMatches,
			TotalHits:   total,
		}},
		TotalHits: total,
	}, nil
}

func (i *Index) GetPendingMigrations(applied []models.TenantMigration) []search.Migration {
	appliedNames := make(map[string]bool, len(applied))
	for _, m := range applied {
		appliedNames[m.Name] = true
	}

	var pending []search.Migration
	for _, m := range tenantMigrations {
		if !appliedNames[m.name] {
			pending = append(pending, search.Migration{Name: m.name, Apply: applyTenantMigration(m.sql)})
		}
	}
	return pending
}

func applyTenantMigration(sql string) func(ctx context.Context, idx search.Index) error {
	return func(ctx context.Context, idx search.Index) error {
		dbIndex, ok := idx.(*Index)
		if !ok {
			return docerr.Processing("database search migration applied to the wrong backend", nil)
		}
		pool, err := dbIndex.acquire(ctx)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, sql); err != nil {
			return docerr.Dependency("failed to apply database search migration", err)
		}
		return nil
	}
}

func (i *Index) ApplyMigration(ctx context.Context, m search.Migration) error {
	return m.Apply(ctx, i)
}
