package middleware

import (
	"crypto/rand"     // Token entropy
	"crypto/subtle"   // Constant-time comparison
	"encoding/base64" // Token encoding
	"net/http"        // HTTP methods and status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// CSRF settings, double-submit cookie
const (
	CSRFCookie    = "csrftoken"    // Cookie holding the token
	CSRFHeader    = "X-CSRF-Token" // Header carrying the token on API calls
	CSRFFormField = "csrf_token"   // Form field carrying the token on page posts

	csrfTokenBytes = 32
	csrfContextKey = "csrfToken"
	csrfMaxAge     = 365 * 24 * 60 * 60 // One year, in seconds
)

// CSRFFailureMessage is the body of a rejected request
const CSRFFailureMessage = "Forbidden (CSRF token missing or incorrect.)"

// NewCSRFToken returns a fresh random token
func NewCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CSRF issues a token cookie and rejects state-changing requests whose
// form field or header does not repeat it
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CSRFCookie)
		if err != nil || !validCSRFToken(token) {
			// Issue a token for the forms on this page
			if token, err = NewCSRFToken(); err != nil {
				logrus.WithError(err).Error("Failed to generate CSRF token")
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CSRFCookie, token, csrfMaxAge, "/", "", isSecure(c), false)
			if !isSafeMethod(c.Request.Method) {
				// A fresh token cannot have been submitted
				rejectCSRF(c)
				return
			}
		}
		c.Set(csrfContextKey, token)
		// Safe methods never change state
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		submitted := c.GetHeader(CSRFHeader)
		if submitted == "" {
			submitted = c.PostForm(CSRFFormField)
		}
		if subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
			rejectCSRF(c)
			return
		}
		c.Next() // Proceed to the next handler
	}
}

// CSRFToken returns the token forms on the current page must submit
func CSRFToken(c *gin.Context) string {
	return c.GetString(csrfContextKey)
}

// rejectCSRF logs and aborts with 403
func rejectCSRF(c *gin.Context) {
	logrus.WithFields(logrus.Fields{
		"method":     c.Request.Method,   // HTTP method
		"path":       c.Request.URL.Path, // Request path
		"request_id": GetRequestID(c),    // Correlation id
	}).Warn("CSRF check failed")
	c.String(http.StatusForbidden, CSRFFailureMessage)
	c.Abort()
}

// validCSRFToken reports whether token has the shape NewCSRFToken produces
func validCSRFToken(token string) bool {
	b, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil && len(b) == csrfTokenBytes
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
