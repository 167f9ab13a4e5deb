package middleware

import (
	"time" // Request latency

	"bookshelf/internal/metrics" // Prometheus collectors

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Request ids
	"github.com/sirupsen/logrus" // Logging library
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "requestID"

// RequestID tags each request with an id, reusing a sane incoming one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString() // Fresh id
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger logs one line per request
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		entry := logrus.WithFields(logrus.Fields{
			"method":     c.Request.Method,           // HTTP method
			"path":       c.Request.URL.Path,         // Request path
			"status":     status,                     // Response status
			"latency":    time.Since(start).String(), // Time spent
			"client_ip":  c.ClientIP(),               // Caller
			"request_id": GetRequestID(c),            // Correlation id
		})
		switch {
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request served")
		}
	}
}

// Metrics records request duration and in-flight count
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.TrackInFlight(true)
		defer metrics.TrackInFlight(false)
		start := time.Now()
		c.Next()
		route := c.FullPath() // Route pattern, not the raw path
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
