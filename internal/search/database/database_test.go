package database

import (
	"context"
	"testing"

	"github.com/docbox-nz/docbox/internal/models"
)

func TestScopeFilters(t *testing.T) {
	exact, patterns := scopeFilters([]models.DocumentBoxScope{
		"test",
		"customer:1:*",
		"other",
		"under_score*",
	})

	if len(exact) != 2 || exact[0] != "test" || exact[1] != "other" {
		t.Fatalf("exact = %v", exact)
	}
	if len(patterns) != 2 {
		t.Fatalf("patterns = %v", patterns)
	}
	if patterns[0] != "customer:1:%" {
		t.Errorf("patterns[0] = %q", patterns[0])
	}
	// LIKE metacharacters in the prefix must be escaped.
	if patterns[1] != `under\_score%` {
		t.Errorf("patterns[1] = %q", patterns[1])
	}
}

func TestLikeEscape(t *testing.T) {
	cases := map[string]string{
		"plain":    "plain",
		"100%":     `100\%`,
		"a_b":      `a\_b`,
		`back\x`:   `back\\x`,
	}
	for input, want := range cases {
		if got := likeEscape(input); got != want {
			t.Errorf("likeEscape(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestArgList(t *testing.T) {
	var args argList
	if p := args.add("a"); p != "$1" {
		t.Errorf("first placeholder = %q", p)
	}
	if p := args.add(2); p != "$2" {
		t.Errorf("second placeholder = %q", p)
	}
	if len(args.args) != 2 {
		t.Errorf("args = %v", args.args)
	}
}

func TestGetPendingMigrations(t *testing.T) {
	idx := &Index{}

	pending := idx.GetPendingMigrations(nil)
	if len(pending) != len(tenantMigrations) {
		t.Fatalf("pending = %d, want %d", len(pending), len(tenantMigrations))
	}
	// Applied in declaration order.
	for i, m := range pending {
		if m.Name != tenantMigrations[i].name {
			t.Errorf("pending[%d] = %q, want %q", i, m.Name, tenantMigrations[i].name)
		}
	}

	applied := []models.TenantMigration{
		{Name: "m1_create_additional_indexes"},
		{Name: "m2_search_create_files_pages_table"},
	}
	pending = idx.GetPendingMigrations(applied)
	if len(pending) != 2 {
		t.Fatalf("pending after partial apply = %d, want 2", len(pending))
	}
	if pending[0].Name != "m3_create_tsvector_columns" {
		t.Errorf("pending[0] = %q", pending[0].Name)
	}
}

func TestDecodePageMatches(t *testing.T) {
	matches, err := decodePageMatches(nil)
	if err != nil || matches != nil {
		t.Fatalf("nil input: %v, %v", matches, err)
	}

	payload := `[{"page":0,"snippet":"<b>alpha</b> content"},{"page":2,"snippet":"more <b>alpha</b>"}]`
	matches, err = decodePageMatches(&payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].Page != 0 || matches[1].Page != 2 {
		t.Fatalf("pages = %d, %d", matches[0].Page, matches[1].Page)
	}
	if len(matches[1].Matches) != 1 || matches[1].Matches[0] != "more <b>alpha</b>" {
		t.Fatalf("snippets = %+v", matches[1].Matches)
	}

	malformed := `{"not":"an array"}`
	if _, err := decodePageMatches(&malformed); err == nil {
		t.Fatal("expected malformed payload to fail")
	}
}

func TestIndexExistsAlwaysFalse(t *testing.T) {
	idx := &Index{}
	exists, err := idx.IndexExists(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("database backend must report no separate index")
	}
}
