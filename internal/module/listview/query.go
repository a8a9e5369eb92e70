package listview

import (
	"fmt"

	"github.com/simp-lee/dashboard/internal/domain"
	"github.com/simp-lee/dashboard/internal/listing"
	"github.com/simp-lee/dashboard/internal/pkg"
)

// StateFor builds the State described by a stateless list query. The field
// filter must name a display column of res, and a category can only be asked
// of a resource that has categories and never together with a field filter.
func StateFor(res listing.Resource, q pkg.ListQuery) (listing.State, error) {
	if q.FilterField != "" && !res.HasColumn(q.FilterField) {
		return listing.State{}, domain.NewAppError(domain.CodeValidation,
			fmt.Sprintf("%s cannot be filtered by %q", res.Kind, q.FilterField), nil)
	}

	narrowsCategory := q.Category != "" && q.Category != listing.CategoryAll
	if narrowsCategory && len(res.Categories) == 0 {
		return listing.State{}, domain.NewAppError(domain.CodeValidation,
			fmt.Sprintf("%s have no categories", res.Kind), nil)
	}
	if narrowsCategory && q.FilterValue != "" {
		return listing.State{}, domain.NewAppError(domain.CodeValidation,
			"category and field filter cannot be combined", nil)
	}

	intents := []listing.Intent{listing.SetPageSize(q.PageSize)}
	if len(res.Categories) > 0 {
		intents = append(intents, listing.SetCategory(q.Category))
	}
	intents = append(intents,
		listing.SetFilter(q.FilterField, q.FilterValue),
		listing.SetSearchTerm(q.Search),
	)
	if q.Page > 0 {
		intents = append(intents, listing.SetPage(q.Page))
	}
	return listing.Chain(intents...)(listing.New(res.Kind)), nil
}
