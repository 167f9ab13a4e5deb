// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookshelf_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookshelf_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)

	// Domain Metrics
	ReviewsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookshelf_reviews_created_total",
			Help: "Total number of reviews saved",
		},
	)

	Registrations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookshelf_registrations_total",
			Help: "Total number of accounts created through the registration form",
		},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	// Admin cache Metrics
	AdminCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_admin_cache_requests_total",
			Help: "Admin list cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// TrackInFlight adjusts the in-flight gauge.
func TrackInFlight(start bool) {
	if start {
		HTTPRequestsInFlight.Inc()
	} else {
		HTTPRequestsInFlight.Dec()
	}
}
