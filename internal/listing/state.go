// Package listing holds the pagination and filtering state machine shared by
// the user and product list views: the per-kind State, the intents that
// mutate it, the query plan derived from it and the orchestrator that reduces
// upstream results back into it.
package listing

import (
	"github.com/simp-lee/dashboard/internal/domain"
)

// Status is the fetch lifecycle of a State.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

const (
	// DefaultPageSize is the page size of a freshly created State.
	DefaultPageSize = 5

	// CategoryAll is the category sentinel meaning "no category narrowing".
	CategoryAll = "all"

	// FilterLookahead bounds the candidate rows fetched for a field filter.
	// Matches beyond the first FilterLookahead search hits are not seen.
	FilterLookahead = 100
)

// PageSizeOptions are the entries-per-page choices offered by the views.
var PageSizeOptions = []int{5, 10, 25, 50}

// State is the query and result snapshot of one list view.
type State struct {
	Kind        domain.Kind     `json:"kind"`
	PageSize    int             `json:"page_size"`
	Page        int             `json:"page"`
	SearchTerm  string          `json:"search_term"`
	FilterField string          `json:"filter_field"`
	FilterValue string          `json:"filter_value"`
	Category    string          `json:"category,omitempty"`
	Items       []domain.Record `json:"items"`
	Total       int             `json:"total"`
	Status      Status          `json:"status"`
	Error       string          `json:"error,omitempty"`
	Generation  uint64          `json:"generation"`
}

// New returns the initial State for kind.
func New(kind domain.Kind) State {
	s := State{
		Kind:     kind,
		PageSize: DefaultPageSize,
		Page:     1,
		Items:    []domain.Record{},
		Status:   StatusIdle,
	}
	if kind == domain.KindProducts {
		s.Category = CategoryAll
	}
	return s
}

// HasFilter reports whether a field filter is active.
func (s State) HasFilter() bool {
	return s.FilterField != "" && s.FilterValue != ""
}

// HasCategory reports whether a category other than CategoryAll is selected.
func (s State) HasCategory() bool {
	return s.Kind == domain.KindProducts && s.Category != "" && s.Category != CategoryAll
}

// Skip is the offset of the first record of the current page.
func (s State) Skip() int {
	if s.Page < 1 || s.PageSize < 1 {
		return 0
	}
	return (s.Page - 1) * s.PageSize
}

// Triggers reports whether moving from prev to next changes the effective
// query. SearchTerm is deliberately absent: search only narrows the page
// already fetched.
func Triggers(prev, next State) bool {
	return prev.PageSize != next.PageSize ||
		prev.Page != next.Page ||
		prev.FilterField != next.FilterField ||
		prev.FilterValue != next.FilterValue ||
		prev.Category != next.Category
}
