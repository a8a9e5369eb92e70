package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/simp-lee/dashboard/internal/listing"
	"github.com/simp-lee/dashboard/internal/middleware"
	"github.com/simp-lee/dashboard/internal/pkg"
	"github.com/simp-lee/dashboard/web"
)

// healthTimeout bounds each health probe.
const healthTimeout = 3 * time.Second

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules    []Module
	Store      Pinger
	Gateway    listing.Gateway
	Mode       string // "debug" or "release"
	CSRFSecret string
	CORS       middleware.CORSConfig
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}
	if strings.TrimSpace(deps.CSRFSecret) == "" {
		return errors.New("csrf secret is required")
	}

	// Static assets
	if err := registerStaticRoutesWithError(r, deps.Mode); err != nil {
		return fmt.Errorf("register static routes: %w", err)
	}

	r.GET("/health", healthHandler(deps.Store, deps.Gateway))

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/users")
	})

	// Read-only JSON API: no CSRF, cross-origin readable.
	api := r.Group("/api/v1")
	api.Use(middleware.CORSWithConfig(deps.CORS))
	api.OPTIONS("/*path", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	// Page and intent routes, CSRF protected.
	pages := r.Group("/")
	pages.Use(middleware.CSRF(deps.CSRFSecret))

	// Register module routes
	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(api, pages)
	}

	r.NoRoute(noRouteHandler())

	return nil
}

// healthHandler probes the session store and both upstream list endpoints
// concurrently. Any failing component degrades the status to 503.
func healthHandler(store Pinger, gw listing.Gateway) gin.HandlerFunc {
	type probe struct {
		name string
		run  func(ctx context.Context) error
	}
	probes := []probe{
		{"session_store", func(ctx context.Context) error {
			if store == nil {
				return errors.New("not configured")
			}
			return store.Ping(ctx)
		}},
		{"upstream_users", func(ctx context.Context) error {
			if gw == nil {
				return errors.New("not configured")
			}
			_, err := gw.ListUsers(ctx, 1, 0)
			return err
		}},
		{"upstream_products", func(ctx context.Context) error {
			if gw == nil {
				return errors.New("not configured")
			}
			_, err := gw.ListProducts(ctx, 1, 0)
			return err
		}},
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		results := make([]string, len(probes))
		var g errgroup.Group
		g.SetLimit(len(probes))
		for i, p := range probes {
			g.Go(func() error {
				results[i] = "ok"
				if err := p.run(ctx); err != nil {
					slog.WarnContext(ctx, "health probe failed",
						slog.String("component", p.name),
						slog.Any("error", err),
					)
					results[i] = "error"
				}
				return nil
			})
		}
		_ = g.Wait()

		status, code := "ok", http.StatusOK
		components := make(gin.H, len(probes))
		for i, p := range probes {
			components[p.name] = results[i]
			if results[i] != "ok" {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}

		c.JSON(code, gin.H{
			"status":     status,
			"components": components,
		})
	}
}

// noRouteHandler returns a handler that renders a 404 HTML page for browser
// requests or a JSON response for API clients.
func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			c.JSON(http.StatusNotFound, pkg.Response{Code: http.StatusNotFound, Message: "not found"})
			return
		}

		renderError(c, http.StatusNotFound, "not found")
	}
}

func registerStaticRoutesWithError(r *gin.Engine, mode string) error {
	if mode == gin.DebugMode {
		debugStaticFS, err := resolveDebugStaticFS()
		if err != nil {
			return fmt.Errorf("resolve debug static filesystem: %w", err)
		}
		fileServer := http.StripPrefix("/static", http.FileServer(http.FS(debugStaticFS)))
		r.GET("/static/*filepath", func(c *gin.Context) {
			fileServer.ServeHTTP(c.Writer, c.Request)
		})
		return nil
	}

	// Release mode: serve from embed.FS with cache headers.
	staticFS, err := fs.Sub(web.EmbeddedFS, "static")
	if err != nil {
		return fmt.Errorf("create sub filesystem for static assets: %w", err)
	}
	r.GET("/static/*filepath", cacheStaticHandler(http.FS(staticFS)))
	return nil
}

func resolveDebugStaticFS() (fs.FS, error) {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return nil, errors.New("resolve current file path")
	}

	projectRoot := filepath.Clean(filepath.Join(filepath.Dir(currentFile), "..", ".."))
	staticDir := filepath.Join(projectRoot, "web", "static")
	if _, err := os.Stat(staticDir); err != nil {
		return nil, fmt.Errorf("stat static directory %q: %w", staticDir, err)
	}

	return os.DirFS(staticDir), nil
}

// cacheStaticHandler wraps an http.FileSystem handler and sets a Cache-Control
// header for release mode static assets.
func cacheStaticHandler(fsys http.FileSystem) gin.HandlerFunc {
	fileServer := http.StripPrefix("/static", http.FileServer(fsys))
	return func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=86400")
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
