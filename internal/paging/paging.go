// Package paging normalizes page/limit query parameters.
package paging

import "strconv"

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a 1-based page with a bounded limit.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// New clamps page and limit into their valid ranges.
func New(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// Parse reads raw query values; malformed numbers fall back to defaults.
func Parse(page, limit string) Params {
	p, _ := strconv.Atoi(page)
	l, _ := strconv.Atoi(limit)
	return New(p, l)
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta is returned next to list results.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

func (p Params) Meta(total int64) Meta {
	return Meta{Page: p.Page, Limit: p.Limit, Total: total}
}
