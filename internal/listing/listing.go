// Package listing filters and pages reference lists already fetched from the
// remote API.
package listing

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type Params struct {
	Query   string
	Page    int
	PerPage int
}

// ParseParams reads q, page and per_page. Bad or missing numbers fall back to
// the first page and the default size.
func ParseParams(v url.Values) Params {
	p := Params{
		Query:   strings.TrimSpace(v.Get("q")),
		Page:    1,
		PerPage: DefaultPerPage,
	}
	if n, err := strconv.Atoi(v.Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(v.Get("per_page")); err == nil && n > 0 {
		p.PerPage = min(n, MaxPerPage)
	}
	return p
}

// Filter keeps the items for which keep returns true.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Search keeps items where any of the fields contains query, ignoring case.
// An empty query keeps everything.
func Search[T any](items []T, query string, fields func(T) []string) []T {
	if query == "" {
		return items
	}
	fold := cases.Fold()
	needle := fold.String(query)
	return Filter(items, func(item T) bool {
		for _, f := range fields(item) {
			if strings.Contains(fold.String(f), needle) {
				return true
			}
		}
		return false
	})
}

// Paginate slices items into the requested page. A page past the end is empty.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page <= 0 {
		page = 1
	}

	total := len(items)
	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}

	if page > p.TotalPages {
		return p
	}
	start := (page - 1) * perPage
	end := min(start+perPage, total)
	p.Items = items[start:end]
	return p
}
