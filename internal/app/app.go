package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/dashboard/internal/config"
	"github.com/simp-lee/dashboard/internal/gateway"
	"github.com/simp-lee/dashboard/internal/listing"
	"github.com/simp-lee/dashboard/internal/middleware"
	"github.com/simp-lee/dashboard/internal/module/listview"
	"github.com/simp-lee/dashboard/internal/session"
	"github.com/simp-lee/dashboard/web"
)

// minReleaseCSRFSecretLen is the shortest csrf_secret accepted in release mode.
const minReleaseCSRFSecretLen = 32

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine *gin.Engine
	store  session.Store
	logger *logger.Logger
	cfg    *config.Config
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler, writeTimeout time.Duration) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// newSessionStore opens the configured session store.
var newSessionStore = func(ctx context.Context, cfg *config.SessionConfig) (session.Store, error) {
	ttl := config.Duration(cfg.TTL, session.DefaultTTL)
	if cfg.Store != config.StoreRedis {
		return session.NewMemoryStore(ttl), nil
	}
	return session.NewRedisStore(ctx, session.RedisOptions{
		Addr:      cfg.Redis.Addr,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
		TTL:       ttl,
	})
}

// New creates and wires a fully configured App from the given Config.
//
// It sets up logging, the upstream gateway, the session store, the list
// orchestrator and modules, middleware, template rendering, and routes.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}

	success := false

	// 1. Setup logger.
	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior and permissive CORS")
	}

	// 2. Upstream gateway.
	gw, err := gateway.New(&gateway.Options{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: config.Duration(cfg.Upstream.Timeout, gateway.DefaultTimeout),
		Logger:  log.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("setup gateway: %w", err)
	}

	// 3. Session store.
	store, err := newSessionStore(context.Background(), &cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("setup session store: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if err := store.Close(); err != nil {
			slog.Error("session store close error", slog.Any("error", err))
		}
	}()
	log.Info("session store ready", slog.String("store", cfg.Session.Store))

	// 4. Manual dependency injection: store + gateway → orchestrator → modules.
	orch := listing.NewOrchestrator(store, gw, log.Logger)
	modules := []Module{
		listview.NewModule(listing.Users, orch, gw),
		listview.NewModule(listing.Products, orch, gw),
	}

	// 5. Create Gin engine with custom middleware (not gin.Default()).
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	handlers := []gin.HandlerFunc{
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: false,
		}),
		middleware.Session(middleware.SessionConfig{
			CookieName: cfg.Session.CookieName,
			TTL:        config.Duration(cfg.Session.TTL, session.DefaultTTL),
			Secure:     cfg.Session.Secure,
		}),
		middleware.Logger(log.Logger),
	}
	if cfg.Server.RateLimit.Enabled {
		handlers = append(handlers, middleware.RateLimit(middleware.RateLimitConfig{
			RPS:   cfg.Server.RateLimit.RPS,
			Burst: cfg.Server.RateLimit.Burst,
		}))
	}
	engine.Use(handlers...)

	// 6. Determine filesystem mode and set up template renderer.
	var fsys fs.FS
	if cfg.Server.Mode == gin.DebugMode {
		fsys, err = resolveDebugWebFS()
		if err != nil {
			return nil, fmt.Errorf("resolve debug template fs: %w", err)
		}
	} else {
		fsys = web.EmbeddedFS
	}

	renderer, err := NewTemplateRenderer(fsys, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("setup template renderer: %w", err)
	}
	engine.HTMLRender = renderer

	// 7. Resolve CSRF secret.
	csrfSecret, err := resolveCSRFSecret(cfg.Server.Mode, cfg.Server.CSRFSecret)
	if err != nil {
		return nil, err
	}
	if csrfSecret != cfg.Server.CSRFSecret {
		log.Warn("no csrf_secret configured, using random secret in non-release mode (will change on restart)")
	}

	// 8. Register all routes.
	if err := RegisterRoutes(engine, &RouteDeps{
		Modules:    modules,
		Store:      store,
		Gateway:    gw,
		Mode:       cfg.Server.Mode,
		CSRFSecret: csrfSecret,
		CORS:       resolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS),
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	success = true
	return &App{
		engine: engine,
		store:  store,
		logger: log,
		cfg:    cfg,
	}, nil
}

// Handler returns the configured HTTP handler.
func (a *App) Handler() http.Handler {
	return a.engine
}

func isPlaceholderCSRFSecret(secret string) bool {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return true
	}

	switch strings.ToLower(trimmed) {
	case "change-me-to-a-random-secret", "change-me-in-env":
		return true
	default:
		return false
	}
}

// resolveCSRFSecret returns the configured secret, or a random one outside
// release mode. Release mode requires a strong configured secret.
func resolveCSRFSecret(mode, configured string) (string, error) {
	if !isPlaceholderCSRFSecret(configured) {
		secret := strings.TrimSpace(configured)
		if mode == gin.ReleaseMode {
			if len(secret) < minReleaseCSRFSecretLen {
				return "", fmt.Errorf("csrf_secret must be at least %d characters in release mode", minReleaseCSRFSecretLen)
			}
			if config.CountSecretClasses(secret) < 3 {
				return "", errors.New("csrf_secret must include at least 3 character classes (lowercase, uppercase, digit, symbol) in release mode")
			}
		}
		return secret, nil
	}

	if mode == gin.ReleaseMode {
		return "", errors.New("csrf_secret must be a non-placeholder value in release mode")
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate csrf secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// resolveCORSConfig builds the JSON API CORS settings. In release mode, when
// no allowlist is configured, cross-origin reads are denied.
func resolveCORSConfig(mode string, cfg config.CORSConfig) middleware.CORSConfig {
	corsConfig := middleware.DefaultCORSConfig()

	if maxAge := config.Duration(cfg.MaxAge, 0); maxAge > 0 {
		corsConfig.MaxAge = strconv.Itoa(int(maxAge.Seconds()))
	}

	switch {
	case len(cfg.AllowOrigins) > 0:
		corsConfig.AllowOrigins = cfg.AllowOrigins
	case mode == gin.ReleaseMode:
		corsConfig.AllowOrigins = []string{}
	}

	return corsConfig
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

func resolveDebugWebFS() (fs.FS, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		webDir := filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", "web"))
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	exePath, err := os.Executable()
	if err == nil {
		webDir := filepath.Join(filepath.Dir(exePath), "web")
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	return nil, errors.New("debug web directory not found")
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
// It performs graceful shutdown with a 5-second timeout and closes the
// session store.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine, config.Duration(a.cfg.Server.Timeout, 60*time.Second))

	// Listen for SIGINT / SIGTERM.
	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		// Graceful shutdown with 5-second deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Error("session store close error", slog.Any("error", err))
		} else {
			log.Info("session store closed")
		}
	}

	log.Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}

	return runErr
}
