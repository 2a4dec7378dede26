package listing

import "thyrd_spaces/internal/domain"

// Paginate returns the 1-indexed page of items. Pages outside the range
// yield an empty slice.
func Paginate[T any](items []T, page, pageSize int) []T {
	if page < 1 || pageSize < 1 {
		return []T{}
	}
	// compare page numbers first so huge pages cannot overflow the offset
	if len(items) == 0 || page-1 > (len(items)-1)/pageSize {
		return []T{}
	}
	start := (page - 1) * pageSize
	end := len(items)
	if pageSize < end-start {
		end = start + pageSize
	}
	return items[start:end:end]
}

// PageCount is ceil(n/pageSize), never less than 1.
func PageCount(n, pageSize int) int {
	if pageSize < 1 || n <= pageSize {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}

// View is the caller-owned browse state.
type View struct {
	Query domain.SearchQuery
	Page  int
}

// WithQuery applies q and goes back to page 1 when the filter changed.
func (v View) WithQuery(q domain.SearchQuery) View {
	if q != v.Query {
		v.Page = 1
	}
	v.Query = q
	return v
}

// Clamp keeps Page within [1, PageCount(n, pageSize)].
func (v View) Clamp(n, pageSize int) View {
	last := PageCount(n, pageSize)
	switch {
	case v.Page < 1:
		v.Page = 1
	case v.Page > last:
		v.Page = last
	}
	return v
}
