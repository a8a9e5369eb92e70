package listing

import (
	"slices"
	"strings"
	"unicode"

	"github.com/simp-lee/dashboard/internal/domain"
)

// filterInputs is how many leading columns get a filter input.
const filterInputs = 5

// Resource describes one list view: its kind, title and display columns.
type Resource struct {
	Kind       domain.Kind
	Title      string
	Columns    []string
	Categories []string
}

// Users is the user list view.
var Users = Resource{
	Kind:  domain.KindUsers,
	Title: "Users",
	Columns: []string{
		"firstName", "lastName", "maidenName", "age", "gender", "email",
		"username", "bloodGroup", "eyeColor", "address.city", "company.name", "phone",
	},
}

// Products is the product list view.
var Products = Resource{
	Kind:  domain.KindProducts,
	Title: "Products",
	Columns: []string{
		"title", "description", "price", "discountPercentage", "rating",
		"stock", "brand", "category", "thumbnail",
	},
	Categories: []string{CategoryAll, "laptops"},
}

// ResourceFor returns the Resource of kind.
func ResourceFor(kind domain.Kind) (Resource, error) {
	switch kind {
	case domain.KindUsers:
		return Users, nil
	case domain.KindProducts:
		return Products, nil
	default:
		return Resource{}, domain.NewAppError(domain.CodeNotFound, "unknown resource "+string(kind), nil)
	}
}

// FilterColumns returns the columns offered as filter inputs.
func (r Resource) FilterColumns() []string {
	return r.Columns[:min(filterInputs, len(r.Columns))]
}

// HasColumn reports whether path is a display column.
func (r Resource) HasColumn(path string) bool {
	return slices.Contains(r.Columns, path)
}

// HasCategory reports whether cat is one of the offered category tabs.
func (r Resource) HasCategory(cat string) bool {
	return slices.Contains(r.Categories, cat)
}

// Narrow keeps the items where any column value, stringified, contains term
// case-insensitively. Null and missing values are skipped. It only ever sees
// the page already fetched.
func Narrow(items []domain.Record, columns []string, term string) []domain.Record {
	if term == "" {
		return items
	}
	out := make([]domain.Record, 0, len(items))
	for _, item := range items {
		for _, col := range columns {
			if text, ok := item.Text(col); ok && domain.ContainsFold(text, term) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// Visible returns the rows of s to render: its items narrowed by the search
// term over the resource columns.
func (r Resource) Visible(s State) []domain.Record {
	return Narrow(s.Items, r.Columns, s.SearchTerm)
}

// Label turns a column path into a header: "address.city" becomes "city" and
// "firstName" becomes "First Name".
func Label(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	var b strings.Builder
	for i, r := range path {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteByte(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
