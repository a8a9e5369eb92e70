package app

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin/render"

	"github.com/simp-lee/dashboard/internal/domain"
	"github.com/simp-lee/dashboard/internal/listing"
)

// TemplateRenderer renders the dashboard pages for gin.
//
// Two modes are supported:
//   - debug: the template tree is parsed again for each response, so edits
//     under web/templates show up on the next reload without a restart.
//   - release: every page is compiled once in NewTemplateRenderer and served
//     from memory.
//
// Compilation works in three passes:
//  1. The shared set is built from templates/layouts/*.html and
//     templates/partials/*.html (base layout, nav, breadcrumbs, filterbar,
//     table, pagination).
//  2. Every other .html file under templates/ is a page.
//  3. Each page is parsed onto its own clone of the shared set, so two pages
//     can define the same block names without clashing.
//
// A page starts with {{ template "base" . }} and fills the layout's "title"
// and "content" blocks with {{ define }}.
type TemplateRenderer struct {
	templates map[string]*template.Template // nil in debug mode
	fs        fs.FS
	funcMap   template.FuncMap
	debug     bool
}

var _ render.HTMLRender = (*TemplateRenderer)(nil)

// NewTemplateRenderer creates a TemplateRenderer over the templates/ tree of
// fsys. In release mode the tree is compiled immediately and a parse error is
// returned here rather than on the first request.
//
// Arguments:
//   - fsys: os.DirFS("web") when serving from disk, web.EmbeddedFS for the
//     templates compiled into the binary.
//   - debug: parse again on every Instance call.
//
// Expected layout of fsys:
//
//	templates/
//	  layouts/    base.html, the page skeleton
//	  partials/   nav, breadcrumbs, filterbar, table, pagination
//	  users/      list.html
//	  products/   list.html (adds the category tabs)
//	  errors/     400, 403, 404 and 500 pages
func NewTemplateRenderer(fsys fs.FS, debug bool) (*TemplateRenderer, error) {
	r := &TemplateRenderer{
		fs:      fsys,
		funcMap: templateFuncMap(),
		debug:   debug,
	}

	if !debug {
		templates, err := r.parseAllTemplates()
		if err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
		r.templates = templates
	}

	return r, nil
}

// Instance returns the render for page name with data, as gin's
// render.HTMLRender requires. name is the page path below templates/, such as
// "users/list.html" or "errors/404.html". An unknown name fails in Render.
func (r *TemplateRenderer) Instance(name string, data any) render.Render {
	templates := r.templates
	if r.debug {
		var err error
		if templates, err = r.parseAllTemplates(); err != nil {
			return &HTMLInstance{Name: name, err: err}
		}
	}
	return &HTMLInstance{Template: templates[name], Name: name, Data: data}
}

// parseAllTemplates compiles one template per page, keyed by its path under
// templates/. Each page is parsed onto its own clone of the shared set.
func (r *TemplateRenderer) parseAllTemplates() (map[string]*template.Template, error) {
	// Pass 1: layouts and partials form the shared set.
	layoutFiles, err := fs.Glob(r.fs, "templates/layouts/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob layouts: %w", err)
	}
	partialFiles, err := fs.Glob(r.fs, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob partials: %w", err)
	}

	base := template.New("").Funcs(r.funcMap)
	baseFiles := append(layoutFiles, partialFiles...)
	for _, f := range baseFiles {
		content, err := fs.ReadFile(r.fs, f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		if _, err := base.New(f).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
	}

	// Pass 2: everything else is a page.
	pageFiles, err := r.discoverPageTemplates()
	if err != nil {
		return nil, fmt.Errorf("discover pages: %w", err)
	}

	// Pass 3: one clone of the shared set per page, keyed as "users/list.html".
	templates := make(map[string]*template.Template, len(pageFiles))
	for _, pf := range pageFiles {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone base for %s: %w", pf, err)
		}
		content, err := fs.ReadFile(r.fs, pf)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", pf, err)
		}
		name := strings.TrimPrefix(pf, "templates/")
		if _, err := clone.New(name).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", pf, err)
		}
		templates[name] = clone
	}

	return templates, nil
}

// discoverPageTemplates finds all .html files under templates/ that are not in
// the layouts/ or partials/ subdirectories.
func (r *TemplateRenderer) discoverPageTemplates() ([]string, error) {
	var pages []string
	err := fs.WalkDir(r.fs, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		// Skip layouts and partials; they form the base template set.
		rel := strings.TrimPrefix(path, "templates/")
		if strings.HasPrefix(rel, "layouts/") || strings.HasPrefix(rel, "partials/") {
			return nil
		}
		pages = append(pages, path)
		return nil
	})
	return pages, err
}

// templateFuncMap returns the helper functions available to every template.
func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		// cell renders the value at a dotted column path; missing and null
		// values become "N/A", objects and arrays JSON.
		"cell": func(r domain.Record, path string) string {
			v, _ := r.Lookup(path)
			return domain.FormatValue(v)
		},

		// label turns a column path into its header text.
		"label": listing.Label,

		// filterValue returns the value shown in the filter input of column:
		// the active filter value on its own column, empty everywhere else.
		"filterValue": func(s listing.State, column string) string {
			if s.FilterField == column {
				return s.FilterValue
			}
			return ""
		},

		// isImage reports whether a column holds an image URL.
		"isImage": func(column string) bool {
			return column == "thumbnail" || strings.HasSuffix(column, ".image") || column == "image"
		},

		"add": func(a, b int) int {
			return a + b
		},

		"sub": func(a, b int) int {
			return a - b
		},
	}
}

// HTMLInstance is a single page render bound to its data.
type HTMLInstance struct {
	Template *template.Template
	Name     string
	Data     any
	err      error // set when template parsing failed (debug mode)
}

const htmlContentType = "text/html; charset=utf-8"

// Render executes the page into w, reporting a parse failure from debug mode
// or an unknown page name.
func (h *HTMLInstance) Render(w http.ResponseWriter) error {
	h.WriteContentType(w)
	if h.err != nil {
		return h.err
	}
	if h.Template == nil {
		return fmt.Errorf("template %q not found", h.Name)
	}
	return h.Template.ExecuteTemplate(w, h.Name, h.Data)
}

// WriteContentType sets text/html unless a handler already chose a type.
func (h *HTMLInstance) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{htmlContentType}
	}
}
