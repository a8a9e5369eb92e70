package listing

import (
	"strings"

	"github.com/simp-lee/dashboard/internal/domain"
)

// Intent is a pure state transition triggered by a user action.
type Intent func(State) State

// SetPageSize changes the page size and returns to the first page.
// Non-positive sizes are ignored.
func SetPageSize(n int) Intent {
	return func(s State) State {
		if n < 1 {
			return s
		}
		s.PageSize = n
		s.Page = 1
		return s
	}
}

// SetSearchTerm changes the free-text search term. It never refetches.
func SetSearchTerm(term string) Intent {
	return func(s State) State {
		s.SearchTerm = term
		return s
	}
}

// SetFilter activates a single field filter, replacing any previous one and
// resetting a product category to CategoryAll. An empty value clears the
// filter instead.
func SetFilter(field, value string) Intent {
	field = strings.TrimSpace(field)
	return func(s State) State {
		if field == "" || value == "" {
			return ClearFilters()(s)
		}
		s.FilterField = field
		s.FilterValue = value
		if s.Kind == domain.KindProducts {
			s.Category = CategoryAll
		}
		s.Page = 1
		return s
	}
}

// ClearFilters removes the field filter and returns to the first page.
func ClearFilters() Intent {
	return func(s State) State {
		s.FilterField = ""
		s.FilterValue = ""
		s.Page = 1
		return s
	}
}

// SetCategory selects a product category. A category and a field filter are
// mutually exclusive, so any field filter is dropped. An empty category
// selects CategoryAll. Non-product states are left unchanged.
func SetCategory(category string) Intent {
	category = strings.TrimSpace(category)
	if category == "" {
		category = CategoryAll
	}
	return func(s State) State {
		if s.Kind != domain.KindProducts {
			return s
		}
		s.Category = category
		s.FilterField = ""
		s.FilterValue = ""
		s.Page = 1
		return s
	}
}

// SetPage moves to page p. It does not clamp; callers only offer valid pages.
func SetPage(p int) Intent {
	return func(s State) State {
		s.Page = p
		return s
	}
}

// Chain applies intents in order.
func Chain(intents ...Intent) Intent {
	return func(s State) State {
		for _, in := range intents {
			if in != nil {
				s = in(s)
			}
		}
		return s
	}
}
