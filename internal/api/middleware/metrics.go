// Package middleware provides HTTP middleware for the control API.
package middleware

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/syncthingtray/syncthingtray/internal/metrics"
)

var (
	// httpRequestsTotal counts the control API requests processed.
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncthingtray_http_requests_total",
			Help: "Total number of control API requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDurationSeconds tracks control API latency.
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "syncthingtray_http_request_duration_seconds",
			Help:    "Duration of control API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registerOnce sync.Once
)

// RegisterMetrics adds the HTTP collectors to metrics.Registry. Safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		metrics.Registry.MustRegister(httpRequestsTotal, httpRequestDurationSeconds)
	})
}

// PrometheusMiddleware records request count and duration per route.
func PrometheusMiddleware() gin.HandlerFunc {
	RegisterMetrics()
	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid self-referential metrics
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := normalizePath(c.FullPath(), c.Request.URL.Path)
		method := c.Request.Method
		httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDurationSeconds.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// normalizePath keeps label cardinality bounded: matched routes use their pattern, anything else
// is collapsed.
func normalizePath(route, raw string) string {
	if route != "" {
		return route
	}
	if strings.HasPrefix(raw, "/v1/") {
		return "/v1/*"
	}
	return "unmatched"
}
