package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"
)

const (
	sessionContextKey        = "session_id"
	defaultSessionCookieName = "dashboard_session"
	defaultSessionTTL        = 30 * time.Minute
)

// SessionConfig controls the session cookie.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Session returns a gin middleware that identifies the browser session.
//
// A valid UUID in the session cookie is reused; otherwise a new one is
// issued. The cookie expiry slides on every request. The id is stored in
// gin.Context under "session_id" and in the Go context for structured logging.
func Session(cfg SessionConfig) gin.HandlerFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = defaultSessionCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultSessionTTL
	}

	return func(c *gin.Context) {
		id := ""
		if cookie, err := c.Cookie(cfg.CookieName); err == nil {
			if parsed, err := uuid.Parse(cookie); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.CookieName, id, int(cfg.TTL.Seconds()), "/", "", cfg.Secure, true)
		c.Set(sessionContextKey, id)

		ctx := logger.WithContextAttrs(c.Request.Context(), slog.String("session_id", id))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetSessionID extracts the session ID from the gin.Context.
// Returns an empty string if no session is set.
func GetSessionID(c *gin.Context) string {
	if id, exists := c.Get(sessionContextKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
