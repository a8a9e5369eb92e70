// Package listview serves the paginated list views: the HTML page with its
// intent forms and the JSON API. One Module is registered per resource.
package listview

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/dashboard/internal/listing"
)

// Module implements the app.Module interface for one list resource.
type Module struct {
	res         listing.Resource
	handler     *Handler
	pageHandler *PageHandler
}

// NewModule creates the Module of res.
// Panics if orch or gw is nil.
func NewModule(res listing.Resource, orch *listing.Orchestrator, gw listing.Gateway) *Module {
	if orch == nil {
		panic("listview.NewModule: orchestrator must not be nil")
	}
	if gw == nil {
		panic("listview.NewModule: gateway must not be nil")
	}
	return &Module{
		res:         res,
		handler:     NewHandler(res, orch, gw),
		pageHandler: NewPageHandler(res, orch),
	}
}

// RegisterRoutes registers the resource's API and page routes.
func (m *Module) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	base := "/" + string(m.res.Kind)

	// API routes
	api.GET(base, m.handler.List)
	api.GET(base+"/state", m.handler.State)

	// Page routes
	pages.GET(base, m.pageHandler.ListPage)
	pages.POST(base+"/page-size", m.pageHandler.SetPageSize)
	pages.POST(base+"/search", m.pageHandler.Search)
	pages.POST(base+"/filter", m.pageHandler.Filter)
	pages.POST(base+"/clear", m.pageHandler.Clear)
	pages.POST(base+"/page", m.pageHandler.SetPage)
	if len(m.res.Categories) > 0 {
		pages.POST(base+"/category", m.pageHandler.SetCategory)
	}
}
