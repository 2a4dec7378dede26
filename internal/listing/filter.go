// Package listing holds the pure browse logic shared by the API and the CLI:
// search, pagination, rating aggregation and tag/favorite bookkeeping.
// Nothing here performs I/O or keeps state between calls.
package listing

import (
	"strings"

	"thyrd_spaces/internal/domain"
)

// AllCategories is the category value that disables category filtering.
const AllCategories = "all"

// Filter returns the spaces matching q, in input order. A cleared query
// returns spaces itself so the full collection is restored.
func Filter(spaces []domain.Space, q domain.SearchQuery) []domain.Space {
	kw := strings.ToLower(strings.TrimSpace(q.Keyword))
	cat := strings.TrimSpace(q.Category)
	anyCategory := cat == "" || strings.EqualFold(cat, AllCategories)

	if kw == "" && anyCategory {
		return spaces
	}

	out := make([]domain.Space, 0, len(spaces))
	for _, s := range spaces {
		if kw != "" && !matchesKeyword(s, kw) {
			continue
		}
		if !anyCategory && !hasTag(s.Tags, cat) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// kw must already be lowercased.
func matchesKeyword(s domain.Space, kw string) bool {
	if strings.Contains(strings.ToLower(s.Name), kw) ||
		strings.Contains(strings.ToLower(s.Description), kw) {
		return true
	}
	for _, t := range s.Tags {
		if strings.Contains(strings.ToLower(t), kw) {
			return true
		}
	}
	return false
}

func hasTag(tags []string, category string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, category) {
			return true
		}
	}
	return false
}
