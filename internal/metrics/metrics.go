// Package metrics holds the Prometheus collectors of the portal and the gin
// middleware recording HTTP metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// IndexFallbacks counts folder subscriptions that hit a missing index
	// and were retried without ordering, by outcome.
	IndexFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_folder_index_fallbacks_total",
			Help: "Folder subscriptions retried without ordering",
		},
		[]string{"outcome"},
	)

	StatusLookupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_status_lookup_failures_total",
			Help: "Per-file read/approval lookups that failed and defaulted to unread",
		},
		[]string{"kind"},
	)

	PreloadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_preload_failures_total",
			Help: "Read/approval batch preloads that failed",
		},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_notification_failures_total",
			Help: "Side-channel notifications that could not be delivered",
		},
		[]string{"event"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_active_sessions",
			Help: "Project/customer sessions currently held in memory",
		},
	)
)

// Middleware records request count, latency and in-flight requests.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		// route pattern avoids high cardinality
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
