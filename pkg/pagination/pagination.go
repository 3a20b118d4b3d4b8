package pagination

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params is a one-based page request as the admin UI sends it.
type Params struct {
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Search  string `json:"search,omitempty"`
}

// DefaultParams is the first page of DefaultPerPage rows.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromRequest reads page, per_page and search from the query string.
// Values that are not positive integers, or a per_page above MaxPerPage,
// fall back to the defaults.
func FromRequest(r *http.Request) Params {
	return FromValues(r.URL.Query())
}

// FromValues is FromRequest for an already parsed query.
func FromValues(q url.Values) Params {
	p := DefaultParams()
	if v, ok := positive(q.Get("page")); ok {
		p.Page = v
	}
	if v, ok := positive(q.Get("per_page")); ok && v <= MaxPerPage {
		p.PerPage = v
	}
	p.Search = strings.TrimSpace(q.Get("search"))
	return p
}

func positive(s string) (int, bool) {
	v, err := strconv.Atoi(s)
	return v, err == nil && v > 0
}

// BackendPage is the zero-based page index Spring-style backends expect.
func (p Params) BackendPage() int {
	return max(p.Page-1, 0)
}

// Result is one page of T plus the counts the UI needs for its pager.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult builds a page. A nil slice is encoded as [].
func NewResult[T any](data []T, totalCount int, p Params) Result[T] {
	if data == nil {
		data = []T{}
	}
	pages := 0
	if p.PerPage > 0 {
		pages = (totalCount + p.PerPage - 1) / p.PerPage
	}
	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}
