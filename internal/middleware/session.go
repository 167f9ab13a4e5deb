package middleware

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes and cookies
	"net/url"  // Query escaping for the next parameter
	"strings"  // String manipulation
	"time"     // Flash cookie lifetime

	"bookshelf/internal/auth"   // Identity service
	"bookshelf/internal/domain" // Importing domain models
	"bookshelf/internal/utils"  // Token signing helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/golang-jwt/jwt/v5" // JWT library
	"github.com/sirupsen/logrus"   // Logging library
)

// Cookie names
const (
	SessionCookie = "session" // Signed session token
	FlashCookie   = "flash"   // Signed queue of flash messages
)

// Flash message levels
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelError   = "error"
)

const (
	requestContextKey = "requestContext" // gin context key for the RequestContext
	flashTTL          = 5 * time.Minute  // Unread flash messages expire after this
)

// Message is a one-time notice shown on the next rendered page
type Message struct {
	Level string `json:"level"` // success, info or error
	Text  string `json:"text"`  // Message body
}

// RequestContext is the per-request view of who is asking and what they should be told
type RequestContext struct {
	Identity  *domain.User // Logged-in user, nil when anonymous
	Flash     []Message    // Messages queued by earlier requests
	SessionID string       // Session the identity came from

	pending []Message // Messages queued during this request
	taken   bool      // Flash has been handed to a page
	secret  string    // Signs the flash cookie
}

// flashClaims carries queued messages inside the flash cookie
type flashClaims struct {
	Messages             []Message `json:"messages"` // Queued messages
	jwt.RegisteredClaims           // Expiry
}

// Session resolves the session cookie and incoming flash messages into a RequestContext
func Session(authSvc *auth.Service, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := &RequestContext{secret: secret} // Anonymous until proven otherwise
		// Resolve the session cookie, if any
		if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
			user, sessionID, err := authSvc.Resolve(c.Request.Context(), token)
			if err != nil {
				// Stale or forged cookies make the request anonymous
				if !errors.Is(err, auth.ErrSessionNotFound) && !errors.Is(err, jwt.ErrTokenMalformed) &&
					!errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
					logrus.WithError(err).Warn("Session lookup failed")
				}
				ClearSessionCookie(c)
			} else {
				rc.Identity = user       // Authenticated user
				rc.SessionID = sessionID // Session id for logout
			}
		}
		// Read queued flash messages
		if token, err := c.Cookie(FlashCookie); err == nil && token != "" {
			claims := &flashClaims{}
			if err := utils.ParseToken(token, claims, secret); err == nil {
				rc.Flash = claims.Messages
			}
		}
		c.Set(requestContextKey, rc) // Store for handlers
		c.Next()                     // Proceed to the next handler
	}
}

// Current returns the RequestContext of c, or an anonymous one outside the Session middleware
func Current(c *gin.Context) *RequestContext {
	if v, ok := c.Get(requestContextKey); ok {
		if rc, ok := v.(*RequestContext); ok {
			return rc
		}
	}
	rc := &RequestContext{}      // Anonymous, no flash
	c.Set(requestContextKey, rc) // Keep queued messages on the same value
	return rc
}

// AddFlash queues a message for the next rendered page
func AddFlash(c *gin.Context, level, text string) {
	rc := Current(c)
	rc.pending = append(rc.pending, Message{Level: level, Text: text})
	msgs := rc.pending
	if !rc.taken {
		// Unread messages from earlier requests stay queued ahead of the new ones
		msgs = append(append([]Message{}, rc.Flash...), rc.pending...)
	}
	writeFlash(c, rc.secret, msgs)
}

// TakeFlash returns the messages to show on the page being rendered and
// drops them from the cookie
func TakeFlash(c *gin.Context) []Message {
	rc := Current(c)
	msgs := rc.Flash // Messages from earlier requests
	rc.Flash = nil
	rc.taken = true
	if len(rc.pending) > 0 {
		// Messages queued while rendering this page are shown right away
		msgs = append(msgs, rc.pending...)
		rc.pending = nil
	}
	if len(msgs) > 0 {
		c.SetCookie(FlashCookie, "", -1, "/", "", isSecure(c), true) // Consumed
	}
	return msgs
}

// SetSessionCookie hands the browser its session token
func SetSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(ttl.Seconds()), "/", "", isSecure(c), true)
}

// ClearSessionCookie removes the session cookie from the browser
func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", isSecure(c), true)
}

// LoginRequired redirects anonymous users to the login page
func LoginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if the request carries an identity
		if Current(c).Identity == nil {
			c.Redirect(http.StatusFound, LoginURL(c.Request.URL.RequestURI())) // Send to login
			c.Abort()
			return
		}
		c.Next() // Proceed to the next handler
	}
}

// LoginURL is the login page that returns to next afterwards
func LoginURL(next string) string {
	return "/login?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// writeFlash stores msgs in the signed flash cookie
func writeFlash(c *gin.Context, secret string, msgs []Message) {
	claims := flashClaims{
		Messages: msgs, // Queued messages
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(flashTTL)), // Unread messages expire
		},
	}
	token, err := utils.SignToken(claims, secret)
	if err != nil {
		logrus.WithError(err).Error("Failed to sign flash cookie")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookie, token, int(flashTTL.Seconds()), "/", "", isSecure(c), true)
}

// isSecure reports whether cookies should carry the Secure flag
func isSecure(c *gin.Context) bool {
	return c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
}
