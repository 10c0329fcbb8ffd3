package models

import "testing"

func TestScopeMatches(t *testing.T) {
	cases := []struct {
		stored DocumentBoxScope
		query  DocumentBoxScope
		want   bool
	}{
		{"test", "test", true},
		{"test", "other", false},
		{"customer:1:files", "customer:1:*", true},
		{"customer:2:files", "customer:1:*", false},
		{"customer:1", "customer:*", true},
		{"customer", "customer:*", false},
		{"anything", "*", true},
		{"test", "test*", true},
		{"testing", "test*", true},
	}

	for _, tc := range cases {
		if got := tc.stored.Matches(tc.query); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.stored, tc.query, got, tc.want)
		}
	}
}

func TestScopeMatchesAny(t *testing.T) {
	stored := DocumentBoxScope("customer:1:files")
	if !stored.MatchesAny([]DocumentBoxScope{"other", "customer:1:*"}) {
		t.Error("expected scope to match a wildcard in the set")
	}
	if stored.MatchesAny([]DocumentBoxScope{"other", "customer:2:*"}) {
		t.Error("expected scope not to match any in the set")
	}
	if stored.MatchesAny(nil) {
		t.Error("expected no match against an empty set")
	}
}

func TestScopeWildcard(t *testing.T) {
	if DocumentBoxScope("test").IsWildcard() {
		t.Error("plain scope reported as wildcard")
	}
	if !DocumentBoxScope("test*").IsWildcard() {
		t.Error("wildcard scope not detected")
	}
	if got := DocumentBoxScope("test*").Prefix(); got != "test" {
		t.Errorf("Prefix() = %q", got)
	}
	if got := DocumentBoxScope("test").Prefix(); got != "test" {
		t.Errorf("Prefix() on non-wildcard = %q", got)
	}
}

func TestClampSize(t *testing.T) {
	if got := ClampSize(10); got != 10 {
		t.Errorf("ClampSize(10) = %d", got)
	}
	if got := ClampSize(MaxFileSize + 1); got != MaxFileSize {
		t.Errorf("ClampSize over cap = %d", got)
	}
}
