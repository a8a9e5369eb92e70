package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
)

// Recovery returns a gin middleware that recovers from panics, logs the error
// with its stack trace and answers 500.
//
// Browser requests (Accept contains "text/html") get the errors/500.html page.
// Everything else, including htmx swaps, gets the JSON envelope:
//
//	{"code": 500, "message": "internal server error", "data": null}
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.ErrorContext(c.Request.Context(), "panic recovered",
					slog.Any("panic", err),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)

				c.Abort()
				if c.Writer.Written() {
					return
				}
				if acceptsHTML(c) && !isHTMX(c) {
					renderHTMLError(c, http.StatusInternalServerError, "internal server error")
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{
					"code":    http.StatusInternalServerError,
					"message": "internal server error",
					"data":    nil,
				})
			}
		}()
		c.Next()
	}
}

// renderHTMLError renders errors/<status>.html, falling back to plain text
// when no HTML renderer is configured or rendering fails.
func renderHTMLError(c *gin.Context, status int, msg string) {
	defer func() {
		if r := recover(); r != nil {
			c.Data(status, "text/plain; charset=utf-8",
				[]byte(fmt.Sprintf("%d %s", status, http.StatusText(status))))
		}
	}()
	c.HTML(status, fmt.Sprintf("errors/%d.html", status), gin.H{
		"Status":  status,
		"Message": msg,
	})
}

func acceptsHTML(c *gin.Context) bool {
	return strings.Contains(strings.ToLower(c.GetHeader("Accept")), "text/html")
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}
