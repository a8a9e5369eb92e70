package listview

// PageSizeForm is the body of POST /{kind}/page-size.
type PageSizeForm struct {
	PageSize int `form:"page_size" json:"page_size" binding:"required,oneof=5 10 25 50"`
}

// SearchForm is the body of POST /{kind}/search. An empty term clears it.
type SearchForm struct {
	Search string `form:"search" json:"search" binding:"max=200"`
}

// FilterForm is the body of POST /{kind}/filter. An empty value clears the
// active filter.
type FilterForm struct {
	Field string `form:"field" json:"field" binding:"required,max=100"`
	Value string `form:"value" json:"value" binding:"max=200"`
}

// PageForm is the body of POST /{kind}/page.
type PageForm struct {
	Page int `form:"page" json:"page" binding:"required,min=1"`
}

// CategoryForm is the body of POST /products/category.
type CategoryForm struct {
	Category string `form:"category" json:"category" binding:"max=100"`
}
