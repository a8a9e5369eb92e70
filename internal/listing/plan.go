package listing

import (
	"context"
	"fmt"

	"github.com/simp-lee/dashboard/internal/domain"
)

// Gateway is the upstream surface the orchestrator reads from.
// *gateway.Client satisfies it.
type Gateway interface {
	ListUsers(ctx context.Context, limit, skip int) (domain.RecordPage, error)
	SearchUsers(ctx context.Context, query string, limit, skip int) (domain.RecordPage, error)
	ListProducts(ctx context.Context, limit, skip int) (domain.RecordPage, error)
	ListProductsByCategory(ctx context.Context, category string, limit, skip int) (domain.RecordPage, error)
	SearchProducts(ctx context.Context, query string, limit, skip int) (domain.RecordPage, error)
}

// Method selects the upstream endpoint of a Plan.
type Method string

const (
	MethodList     Method = "list"
	MethodCategory Method = "category"
	MethodFilter   Method = "filter"
)

// Plan is the upstream request derived from a State, plus the local
// narrowing applied to a field-filter response.
type Plan struct {
	Kind     domain.Kind
	Method   Method
	Category string
	Field    string
	Value    string
	Limit    int
	Skip     int
	PageSize int
	Offset   int
}

// PlanFor derives the query for s. The first matching rule wins: a category,
// then a field filter, then the plain list.
func PlanFor(s State) Plan {
	p := Plan{Kind: s.Kind, PageSize: s.PageSize}
	switch {
	case s.HasCategory():
		p.Method = MethodCategory
		p.Category = s.Category
		p.Limit = s.PageSize
		p.Skip = s.Skip()
	case s.HasFilter():
		p.Method = MethodFilter
		p.Field = s.FilterField
		p.Value = s.FilterValue
		p.Limit = FilterLookahead
		p.Skip = 0
		p.Offset = s.Skip()
	default:
		p.Method = MethodList
		p.Limit = s.PageSize
		p.Skip = s.Skip()
	}
	return p
}

// Execute runs p against gw. For a field filter the search hits are narrowed
// to records whose field contains the value, counted, then sliced to the
// requested page.
func Execute(ctx context.Context, gw Gateway, p Plan) (domain.RecordPage, error) {
	switch p.Kind {
	case domain.KindUsers:
		switch p.Method {
		case MethodFilter:
			page, err := gw.SearchUsers(ctx, p.Value, p.Limit, p.Skip)
			if err != nil {
				return domain.RecordPage{}, err
			}
			return narrowByField(page.Records, p), nil
		case MethodList:
			return gw.ListUsers(ctx, p.Limit, p.Skip)
		}
	case domain.KindProducts:
		switch p.Method {
		case MethodCategory:
			return gw.ListProductsByCategory(ctx, p.Category, p.Limit, p.Skip)
		case MethodFilter:
			page, err := gw.SearchProducts(ctx, p.Value, p.Limit, p.Skip)
			if err != nil {
				return domain.RecordPage{}, err
			}
			return narrowByField(page.Records, p), nil
		case MethodList:
			return gw.ListProducts(ctx, p.Limit, p.Skip)
		}
	}
	return domain.RecordPage{}, domain.NewAppError(domain.CodeInternal,
		fmt.Sprintf("no query for %s/%s", p.Kind, p.Method), nil)
}

// MatchField reports whether the value at field, stringified, contains value
// case-insensitively. Missing and null fields never match.
func MatchField(r domain.Record, field, value string) bool {
	text, ok := r.Text(field)
	if !ok {
		return false
	}
	return domain.ContainsFold(text, value)
}

func narrowByField(records []domain.Record, p Plan) domain.RecordPage {
	matched := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if MatchField(r, p.Field, p.Value) {
			matched = append(matched, r)
		}
	}
	return domain.RecordPage{
		Records: window(matched, p.Offset, p.PageSize),
		Total:   len(matched),
	}
}

// window returns records[offset:offset+size], clipped to the slice bounds.
func window(records []domain.Record, offset, size int) []domain.Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) || size < 1 {
		return []domain.Record{}
	}
	end := min(offset+size, len(records))
	return records[offset:end]
}
