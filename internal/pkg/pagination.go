package pkg

import (
	"context"
	"fmt"
	"math"

	"github.com/simp-lee/pagination"
)

// maxWindowedPages is the page count up to which every page gets a button.
const maxWindowedPages = 7

// ListQuery holds the list parameters accepted by the JSON API and the CLI.
type ListQuery struct {
	Page        int    `form:"page" json:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" json:"page_size" binding:"omitempty,oneof=5 10 25 50"`
	Search      string `form:"search" json:"search" binding:"omitempty,max=200"`
	FilterField string `form:"filter_field" json:"filter_field" binding:"required_with=FilterValue,max=100"`
	FilterValue string `form:"filter_value" json:"filter_value" binding:"omitempty,max=200"`
	Category    string `form:"category" json:"category" binding:"omitempty,max=100"`
}

// PageItem is one entry of a pagination control: a page number or an
// ellipsis marker.
type PageItem struct {
	Number   int  `json:"number,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
	Current  bool `json:"current,omitempty"`
}

// ListPage is one page of a list: the paginator's envelope plus the
// ellipsis window of page buttons.
type ListPage[T any] struct {
	*pagination.Pagination[T]
	// TotalPages is 0 for an empty list, where the paginator reports one page.
	TotalPages int        `json:"total_pages"`
	Window     []PageItem `json:"window"`
}

// TotalPages returns ceil(total/pageSize), or 0 when pageSize is not positive.
func TotalPages(total, pageSize int) int {
	if pageSize < 1 || total < 1 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

// PageWindow returns the buttons of a pagination control. Up to seven pages
// are all shown; beyond that the first and last page are kept with a window
// of one page around the current one, and each skipped gap collapses into a
// single ellipsis.
func PageWindow(page, totalPages int) []PageItem {
	items := make([]PageItem, 0, maxWindowedPages+2)
	number := func(n int) PageItem {
		return PageItem{Number: n, Current: n == page}
	}

	if totalPages <= maxWindowedPages {
		for n := 1; n <= totalPages; n++ {
			items = append(items, number(n))
		}
		return items
	}

	items = append(items, number(1))
	start := max(2, page-1)
	end := min(totalPages-1, page+1)
	if start > 2 {
		items = append(items, PageItem{Ellipsis: true})
	}
	for n := start; n <= end; n++ {
		items = append(items, number(n))
	}
	if end < totalPages-1 {
		items = append(items, PageItem{Ellipsis: true})
	}
	return append(items, number(totalPages))
}

// Paginate wraps rows, an already fetched page, into a ListPage. The
// upstream API slices the records, so the slice callback returns rows as is.
func Paginate[T any](ctx context.Context, rows []T, page, pageSize, total int) (*ListPage[T], error) {
	p, err := pagination.NewPaginator(
		pagination.WithItemsPerPage[T](pageSize),
		pagination.WithPagesInRange[T](3),
		pagination.WithKnownTotal[T](int64(total)),
		pagination.WithSliceCallback(func(context.Context, int, int) ([]T, error) {
			return rows, nil
		}),
	).Paginate(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("paginate page %d: %w", page, err)
	}

	totalPages := TotalPages(total, pageSize)
	return &ListPage[T]{
		Pagination: p,
		TotalPages: totalPages,
		Window:     PageWindow(p.CurrentPage, totalPages),
	}, nil
}
