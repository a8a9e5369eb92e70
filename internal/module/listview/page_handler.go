package listview

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/dashboard/internal/domain"
	"github.com/simp-lee/dashboard/internal/listing"
	"github.com/simp-lee/dashboard/internal/middleware"
	"github.com/simp-lee/dashboard/internal/pkg"
)

// PageHandler renders one list view and applies the intents posted from it.
type PageHandler struct {
	res  listing.Resource
	orch *listing.Orchestrator
}

// NewPageHandler creates a PageHandler for res.
func NewPageHandler(res listing.Resource, orch *listing.Orchestrator) *PageHandler {
	return &PageHandler{res: res, orch: orch}
}

// Template returns the page template name of the view.
func (h *PageHandler) Template() string {
	return string(h.res.Kind) + "/list.html"
}

// BasePath returns the URL path of the view.
func (h *PageHandler) BasePath() string {
	return "/" + string(h.res.Kind)
}

// ListPage renders the view from the session's latest snapshot.
// GET /{kind}
func (h *PageHandler) ListPage(c *gin.Context) {
	s, err := h.orch.Snapshot(c.Request.Context(), middleware.GetSessionID(c), h.res.Kind)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "load list state failed",
			slog.String("kind", string(h.res.Kind)),
			slog.Any("error", err),
		)
		h.renderError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	page, err := pkg.Paginate(c.Request.Context(), h.res.Visible(s), s.Page, s.PageSize, s.Total)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "paginate list failed",
			slog.String("kind", string(h.res.Kind)),
			slog.Any("error", err),
		)
		h.renderError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.HTML(http.StatusOK, h.Template(), gin.H{
		"Title":      h.res.Title,
		"BasePath":   h.BasePath(),
		"Resource":   h.res,
		"State":      s,
		"Rows":       page.Items,
		"Pagination": page,
		"PageSizes":  listing.PageSizeOptions,
		"CSRFToken":  middleware.GetCSRFToken(c),
	})
}

// SetPageSize handles POST /{kind}/page-size.
func (h *PageHandler) SetPageSize(c *gin.Context) {
	var form PageSizeForm
	if !h.bind(c, &form) {
		return
	}
	h.dispatch(c, listing.SetPageSize(form.PageSize))
}

// Search handles POST /{kind}/search.
func (h *PageHandler) Search(c *gin.Context) {
	var form SearchForm
	if !h.bind(c, &form) {
		return
	}
	h.dispatch(c, listing.SetSearchTerm(strings.TrimSpace(form.Search)))
}

// Filter handles POST /{kind}/filter.
func (h *PageHandler) Filter(c *gin.Context) {
	var form FilterForm
	if !h.bind(c, &form) {
		return
	}
	if !h.res.HasColumn(form.Field) {
		h.reject(c, fmt.Sprintf("%s cannot be filtered by %q", h.res.Kind, form.Field))
		return
	}
	h.dispatch(c, listing.SetFilter(form.Field, strings.TrimSpace(form.Value)))
}

// Clear handles POST /{kind}/clear: it drops the field filter and the search
// term.
func (h *PageHandler) Clear(c *gin.Context) {
	h.dispatch(c, listing.Chain(listing.ClearFilters(), listing.SetSearchTerm("")))
}

// SetPage handles POST /{kind}/page.
func (h *PageHandler) SetPage(c *gin.Context) {
	var form PageForm
	if !h.bind(c, &form) {
		return
	}
	h.dispatch(c, listing.SetPage(form.Page))
}

// SetCategory handles POST /{kind}/category. Only resources with categories
// register it, and only their tabs are accepted.
func (h *PageHandler) SetCategory(c *gin.Context) {
	var form CategoryForm
	if !h.bind(c, &form) {
		return
	}
	if !h.res.HasCategory(form.Category) {
		h.reject(c, fmt.Sprintf("category %q is not offered", form.Category))
		return
	}
	h.dispatch(c, listing.SetCategory(form.Category))
}

func (h *PageHandler) bind(c *gin.Context, form any) bool {
	err := c.ShouldBind(form)
	if err == nil {
		return true
	}
	slog.DebugContext(c.Request.Context(), "list intent: bind error",
		slog.String("kind", string(h.res.Kind)),
		slog.Any("error", err),
	)
	msg := "please check your input"
	if fields, ok := pkg.FieldErrors(err, form); ok {
		name := slices.Sorted(maps.Keys(fields))[0]
		msg = name + ": " + fields[name]
	}
	h.reject(c, msg)
	return false
}

// dispatch applies intent to the session state and sends the browser back to
// the view, which renders whatever the orchestrator committed.
func (h *PageHandler) dispatch(c *gin.Context, intent listing.Intent) {
	_, err := h.orch.Dispatch(c.Request.Context(), middleware.GetSessionID(c), h.res.Kind, intent)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "dispatch list intent failed",
			slog.String("kind", string(h.res.Kind)),
			slog.Any("error", err),
		)
		h.renderError(c, domain.HTTPStatusCode(err), "internal server error")
		return
	}
	h.redirect(c)
}

func (h *PageHandler) redirect(c *gin.Context) {
	if isHTMX(c) {
		c.Header("HX-Redirect", h.BasePath())
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, h.BasePath())
}

// reject answers an invalid intent: htmx callers get a toast and no swap,
// plain form posts the 400 page.
func (h *PageHandler) reject(c *gin.Context, msg string) {
	if isHTMX(c) {
		c.Header("HX-Reswap", "none")
		setShowToastHeader(c, msg, "error")
		c.Status(http.StatusOK)
		return
	}
	h.renderError(c, http.StatusBadRequest, msg)
}

func (h *PageHandler) renderError(c *gin.Context, status int, msg string) {
	if status != http.StatusBadRequest && status != http.StatusNotFound {
		status = http.StatusInternalServerError
	}
	c.HTML(status, fmt.Sprintf("errors/%d.html", status), gin.H{
		"Status":  status,
		"Message": msg,
	})
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// setShowToastHeader sets the HX-Trigger response header with a showToast event.
func setShowToastHeader(c *gin.Context, message, toastType string) {
	trigger, _ := json.Marshal(map[string]any{
		"showToast": map[string]string{
			"message": message,
			"type":    toastType,
		},
	})
	c.Header("HX-Trigger", string(trigger))
}
