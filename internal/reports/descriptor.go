package reports

import (
	"context"
	"slices"
)

// View tags a report tab.
type View string

// FetchFunc loads one slice of a report.
type FetchFunc func(ctx context.Context, q Query) (any, error)

// Descriptor declares one independently loaded widget or table.
type Descriptor struct {
	ID    string
	Views []View
	// Paginated tables own a page request separate from the filters.
	Paginated   bool
	DefaultSize int
	Fetch       FetchFunc
}

// AppliesTo reports whether the descriptor belongs to view.
func (d Descriptor) AppliesTo(view View) bool {
	return slices.Contains(d.Views, view)
}
