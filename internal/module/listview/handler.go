package listview

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/dashboard/internal/domain"
	"github.com/simp-lee/dashboard/internal/listing"
	"github.com/simp-lee/dashboard/internal/middleware"
	"github.com/simp-lee/dashboard/internal/pkg"
)

// Handler serves the JSON API of one list resource.
type Handler struct {
	res  listing.Resource
	orch *listing.Orchestrator
	gw   listing.Gateway
}

// NewHandler creates a Handler for res.
func NewHandler(res listing.Resource, orch *listing.Orchestrator, gw listing.Gateway) *Handler {
	return &Handler{res: res, orch: orch, gw: gw}
}

// List handles GET /api/v1/{kind}. It is stateless: the query string fully
// describes the page, and the session is neither read nor written.
func (h *Handler) List(c *gin.Context) {
	var q pkg.ListQuery
	if !pkg.BindQuery(c, &q) {
		return
	}

	s, err := StateFor(h.res, q)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	s, err = listing.Run(c.Request.Context(), h.gw, s)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	page, err := pkg.Paginate(c.Request.Context(), h.res.Visible(s), s.Page, s.PageSize, s.Total)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, page)
}

// State handles GET /api/v1/{kind}/state and returns the caller's session
// snapshot, fetching it first if it was never fetched.
func (h *Handler) State(c *gin.Context) {
	sid := middleware.GetSessionID(c)
	if sid == "" {
		pkg.Error(c, domain.NewAppError(domain.CodeValidation, "no session", nil))
		return
	}

	s, err := h.orch.Snapshot(c.Request.Context(), sid, h.res.Kind)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, s)
}
