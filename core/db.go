package core

import "math"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// Page selects a window of a result set. The zero value selects everything.
type Page struct {
	Page  int `query:"page" json:"page"`
	Limit int `query:"limit" json:"limit"`
}

// Clean applies the listing defaults: page 1 and DefaultPageSize items, capped at MaxPageSize.
func (p *Page) Clean() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
}

func (p Page) IsZero() bool { return p.Limit == 0 }

func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Pagination describes a page of results.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(p Page, total int64) Pagination {
	pg := Pagination{Total: total, Page: p.Page, Limit: p.Limit}
	if p.Limit > 0 {
		pg.TotalPages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return pg
}
