// Package models defines the docbox entity types shared across the
// database, search, storage, and upload-pipeline packages.
package models

import "strings"

// DocumentBoxScope is the opaque scope string naming a logical document
// box. All children of a document box carry this scope for isolation.
type DocumentBoxScope string

// IsWildcard reports whether the scope ends in "*", meaning it should be
// matched as a prefix rather than exactly.
func (s DocumentBoxScope) IsWildcard() bool {
	return strings.HasSuffix(string(s), "*")
}

// Prefix strips the trailing "*" from a wildcard scope. Callers should
// check IsWildcard first; Prefix on a non-wildcard scope returns the scope
// unchanged.
func (s DocumentBoxScope) Prefix() string {
	return strings.TrimSuffix(string(s), "*")
}

// Matches reports whether the receiver scope (as stored on an entity)
// satisfies the query scope, honoring wildcard-suffixed query scopes.
func (s DocumentBoxScope) Matches(query DocumentBoxScope) bool {
	if query.IsWildcard() {
		return strings.HasPrefix(string(s), query.Prefix())
	}
	return s == query
}

// MatchesAny reports whether the receiver scope satisfies any of the query
// scopes.
func (s DocumentBoxScope) MatchesAny(queries []DocumentBoxScope) bool {
	for _, q := range queries {
		if s.Matches(q) {
			return true
		}
	}
	return false
}
