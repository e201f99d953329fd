package reporting

// Page is one slice of an ordered listing. Page numbers are 1-based.
type Page[T any] struct {
	Items   []T `json:"items"`
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

// Paginate cuts items into pages of size and returns the requested one. A page
// past the end is clamped to the last page; an empty listing yields page 1
// of 0 with no items.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size < 1 {
		size = 1
	}
	total := len(items)
	pages := (total + size - 1) / size
	if page < 1 {
		page = 1
	}
	if pages > 0 && page > pages {
		page = pages
	}
	out := Page[T]{Items: []T{}, Page: page, Pages: pages, PerPage: size, Total: total}
	start := (page - 1) * size
	if start >= total {
		return out
	}
	end := min(start+size, total)
	out.Items = items[start:end]
	return out
}
