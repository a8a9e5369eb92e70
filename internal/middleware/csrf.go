package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	csrfCookieName = "_csrf_token"
	csrfFormField  = "_csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfContextKey = "CSRFToken"
)

// CSRF returns a gin middleware protecting the intent forms of the list pages.
//
// Tokens have the form hex(nonce) + "." + base64url(HMAC-SHA256(nonce|session, secret)),
// so a token only validates for the session it was issued to. When the
// Session middleware has not run, tokens are bound to the empty session.
//
// Safe methods get a token (reused from the cookie while still valid) stored
// in gin.Context under "CSRFToken" for templates. Unsafe methods must echo
// the cookie token in the "_csrf_token" form field or the X-CSRF-Token
// header, which htmx sends via hx-headers. Failures abort with 403.
func CSRF(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return func(c *gin.Context) {
			rejectCSRF(c, http.StatusInternalServerError, "csrf secret is required")
		}
	}

	secure := gin.Mode() == gin.ReleaseMode
	return func(c *gin.Context) {
		binding := GetSessionID(c)

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			token, err := c.Cookie(csrfCookieName)
			if err != nil || !validToken(token, binding, secret) {
				token, err = generateToken(binding, secret)
				if err != nil {
					rejectCSRF(c, http.StatusInternalServerError, "failed to generate CSRF token")
					return
				}
				setCSRFCookie(c, token, secure)
			}
			c.Set(csrfContextKey, token)
			c.Next()

		default:
			cookieToken, err := c.Cookie(csrfCookieName)
			if err != nil || cookieToken == "" {
				rejectCSRF(c, http.StatusForbidden, "CSRF token missing")
				return
			}

			requestToken := c.PostForm(csrfFormField)
			if requestToken == "" {
				requestToken = c.GetHeader(csrfHeaderName)
			}
			if requestToken == "" {
				rejectCSRF(c, http.StatusForbidden, "CSRF token missing")
				return
			}

			if !validToken(cookieToken, binding, secret) ||
				subtle.ConstantTimeCompare([]byte(cookieToken), []byte(requestToken)) != 1 {
				rejectCSRF(c, http.StatusForbidden, "CSRF token invalid")
				return
			}

			c.Set(csrfContextKey, cookieToken)
			c.Next()
		}
	}
}

// GetCSRFToken retrieves the CSRF token stored in gin.Context by the CSRF middleware.
// Returns an empty string if no token is available.
func GetCSRFToken(c *gin.Context) string {
	if token, exists := c.Get(csrfContextKey); exists {
		if s, ok := token.(string); ok {
			return s
		}
	}
	return ""
}

func generateToken(binding, secret string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	nonceHex := hex.EncodeToString(nonce)
	return nonceHex + "." + signNonce(nonceHex, binding, secret), nil
}

func signNonce(nonce, binding, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(nonce))
	mac.Write([]byte{'|'})
	mac.Write([]byte(binding))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func validToken(token, binding, secret string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	expected := signNonce(nonce, binding, secret)
	return subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) == 1
}

// setCSRFCookie sets the token cookie readable by scripts, SameSite=Strict,
// Secure in release mode.
func setCSRFCookie(c *gin.Context, token string, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func rejectCSRF(c *gin.Context, status int, msg string) {
	c.Abort()
	if acceptsHTML(c) {
		renderHTMLError(c, status, msg)
		return
	}
	c.JSON(status, gin.H{"code": status, "message": msg, "data": nil})
}
