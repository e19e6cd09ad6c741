package backend

import (
	"math"
	"strconv"
)

// DefaultPageSize applies when a request asks for a non-positive size.
const DefaultPageSize = 10

// Page is one page of a paginated listing.
type Page[T any] struct {
	Content       []T `json:"content"`
	PageNumber    int `json:"pageNumber"`
	PageSize      int `json:"pageSize"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

// NewPage assembles a page and computes its page count.
func NewPage[T any](content []T, page, size, total int) Page[T] {
	req := PageRequest{Page: page, Size: size}.Normalize()
	return Page[T]{
		Content:       content,
		PageNumber:    req.Page,
		PageSize:      req.Size,
		TotalElements: total,
		TotalPages:    int(math.Ceil(float64(total) / float64(req.Size))),
	}
}

// PageRequest selects a zero-based page.
type PageRequest struct {
	Page   int    `json:"page"`
	Size   int    `json:"size"`
	SortBy string `json:"sortBy,omitempty"`
}

// Normalize clamps the page to zero and the size to DefaultPageSize.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	return p
}

// Params renders the request as query parameters merged into base.
func (p PageRequest) Params(base Params) Params {
	p = p.Normalize()
	out := base.Clone()
	out["page"] = strconv.Itoa(p.Page)
	out["size"] = strconv.Itoa(p.Size)
	if p.SortBy != "" {
		out["sortBy"] = p.SortBy
	}
	return out
}

// Params are query parameters; empty values are dropped before sending.
type Params map[string]string

// Clone copies p without empty values.
func (p Params) Clone() Params {
	out := make(Params, len(p)+3)
	for k, v := range p {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
