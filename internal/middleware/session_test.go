package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"
)

func setupSessionRouter(cfg SessionConfig) *gin.Engine {
	r := gin.New()
	r.Use(Session(cfg))
	r.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, GetSessionID(c))
	})
	r.GET("/ctx", func(c *gin.Context) {
		c.String(http.StatusOK, findAttrValue(logger.FromContext(c.Request.Context()), "session_id"))
	})
	return r
}

func sessionCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSession_IssuesCookie(t *testing.T) {
	r := setupSessionRouter(SessionConfig{TTL: time.Hour})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))

	id := w.Body.String()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected UUID session id, got %q", id)
	}
	c := sessionCookie(w, defaultSessionCookieName)
	if c == nil {
		t.Fatal("expected session cookie")
	}
	if c.Value != id {
		t.Errorf("cookie value %q; want %q", c.Value, id)
	}
	if !c.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if c.MaxAge != 3600 {
		t.Errorf("MaxAge = %d; want 3600", c.MaxAge)
	}
}

func TestSession_ReusesValidCookie(t *testing.T) {
	r := setupSessionRouter(SessionConfig{CookieName: "sid"})
	existing := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: existing})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() != existing {
		t.Errorf("expected session %q to be reused, got %q", existing, w.Body.String())
	}
	if c := sessionCookie(w, "sid"); c == nil || c.Value != existing {
		t.Error("expected the cookie expiry to be refreshed with the same id")
	}
}

func TestSession_ReplacesMalformedCookie(t *testing.T) {
	r := setupSessionRouter(SessionConfig{})

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.AddCookie(&http.Cookie{Name: defaultSessionCookieName, Value: "../../etc/passwd"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if _, err := uuid.Parse(w.Body.String()); err != nil {
		t.Errorf("expected a fresh UUID, got %q", w.Body.String())
	}
}

func TestSession_StoredInGoContext(t *testing.T) {
	r := setupSessionRouter(SessionConfig{})
	existing := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/ctx", nil)
	req.AddCookie(&http.Cookie{Name: defaultSessionCookieName, Value: existing})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() != existing {
		t.Errorf("expected session id in log context, got %q", w.Body.String())
	}
}

func TestGetSessionID_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := GetSessionID(c); got != "" {
		t.Errorf("expected empty session id, got %q", got)
	}
}
