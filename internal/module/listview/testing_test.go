package listview

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/dashboard/internal/domain"
	"github.com/simp-lee/dashboard/internal/listing"
	"github.com/simp-lee/dashboard/internal/middleware"
	"github.com/simp-lee/dashboard/internal/session"
)

const testSessionID = "0b6f6f0e-7a43-4a43-9d38-0d3c2f5b8a11"

// --- stub gateway ---

type stubGateway struct {
	mu      sync.Mutex
	records []domain.Record
	err     error
	calls   []string
}

func (g *stubGateway) page(op string, limit, skip int) (domain.RecordPage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, op)
	if g.err != nil {
		return domain.RecordPage{}, g.err
	}
	start := min(skip, len(g.records))
	end := min(skip+limit, len(g.records))
	return domain.RecordPage{Records: g.records[start:end], Total: len(g.records)}, nil
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *stubGateway) lastCall() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.calls) == 0 {
		return ""
	}
	return g.calls[len(g.calls)-1]
}

func (g *stubGateway) ListUsers(_ context.Context, limit, skip int) (domain.RecordPage, error) {
	return g.page("ListUsers", limit, skip)
}

func (g *stubGateway) SearchUsers(_ context.Context, q string, limit, skip int) (domain.RecordPage, error) {
	return g.page("SearchUsers:"+q, limit, skip)
}

func (g *stubGateway) ListProducts(_ context.Context, limit, skip int) (domain.RecordPage, error) {
	return g.page("ListProducts", limit, skip)
}

func (g *stubGateway) ListProductsByCategory(_ context.Context, category string, limit, skip int) (domain.RecordPage, error) {
	return g.page("ListProductsByCategory:"+category, limit, skip)
}

func (g *stubGateway) SearchProducts(_ context.Context, q string, limit, skip int) (domain.RecordPage, error) {
	return g.page("SearchProducts:"+q, limit, skip)
}

func users(names ...string) []domain.Record {
	out := make([]domain.Record, len(names))
	for i, n := range names {
		out[i] = domain.Record{"id": i + 1, "firstName": n, "lastName": "Doe"}
	}
	return out
}

// --- router helpers ---

type testEnv struct {
	router *gin.Engine
	gw     *stubGateway
	store  *session.MemoryStore
	orch   *listing.Orchestrator
}

// newTestEnv wires both list modules behind the session middleware, with
// stub templates that print the parts of the page data the tests look at.
func newTestEnv(t *testing.T, gw *stubGateway) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := session.NewMemoryStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	orch := listing.NewOrchestrator(store, gw, nil)

	r := gin.New()
	r.Use(middleware.Session(middleware.SessionConfig{}))
	tmpl := template.Must(template.New("").Parse(
		`{{define "users/list.html"}}{{.Title}}|{{.State.Status}}|{{.State.PageSize}}|{{.State.Page}}|{{len .Rows}}|{{.Pagination.TotalPages}}|{{.State.Error}}{{end}}` +
			`{{define "products/list.html"}}{{.Title}}|{{.State.Status}}|{{.State.Category}}|{{.State.FilterField}}={{.State.FilterValue}}{{end}}` +
			`{{define "errors/400.html"}}400:{{.Message}}{{end}}` +
			`{{define "errors/404.html"}}404{{end}}` +
			`{{define "errors/500.html"}}500:{{.Message}}{{end}}`,
	))
	r.SetHTMLTemplate(tmpl)

	api := r.Group("/api/v1")
	pages := r.Group("/")
	NewModule(listing.Users, orch, gw).RegisterRoutes(api, pages)
	NewModule(listing.Products, orch, gw).RegisterRoutes(api, pages)

	return &testEnv{router: r, gw: gw, store: store, orch: orch}
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.AddCookie(&http.Cookie{Name: "dashboard_session", Value: testSessionID})
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) post(path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "dashboard_session", Value: testSessionID})
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) state(t *testing.T, kind domain.Kind) listing.State {
	t.Helper()
	s, err := e.store.Load(context.Background(), testSessionID, kind)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	return s
}
