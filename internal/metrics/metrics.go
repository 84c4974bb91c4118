// Package metrics provides Prometheus metrics collection for the asset server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ModuleKey is the gin.Context key under which handlers record the resolved
// asset module, so request metrics can be labeled by it. Only names that
// passed the routing table lookup are stored, which keeps label cardinality
// bounded.
const ModuleKey = "metrics.module"

const (
	noModule       = "-"
	unmatchedRoute = "unmatched"
)

var (
	// Request metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetsrv_requests_total",
			Help: "Total number of requests by route, asset module and status",
		},
		[]string{"route", "module", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetsrv_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"route"},
	)

	BackdropsErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetsrv_backdrops_errors_total",
			Help: "Total number of failed backdrops loads by reason",
		},
		[]string{"reason"},
	)

	ActiveRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assetsrv_active_requests",
			Help: "Number of currently active requests",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		BackdropsErrors,
		ActiveRequests,
	)
}

// Handler returns an HTTP handler for the Prometheus /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest tracks request metrics with timing.
func RecordRequest(route, module string, status int, duration time.Duration) {
	if route == "" {
		route = unmatchedRoute
	}
	if module == "" {
		module = noModule
	}
	RequestsTotal.WithLabelValues(route, module, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordBackdropsError increments the backdrops failure counter.
func RecordBackdropsError(reason string) {
	BackdropsErrors.WithLabelValues(reason).Inc()
}

// Middleware returns a gin middleware that records request count, latency
// and in-flight requests. Requests to skipPath (normally the metrics endpoint
// itself) are not tracked.
func Middleware(skipPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipPath != "" && c.Request.URL.Path == skipPath {
			c.Next()
			return
		}

		ActiveRequests.Inc()
		defer ActiveRequests.Dec()

		start := time.Now()
		c.Next()

		RecordRequest(c.FullPath(), c.GetString(ModuleKey), c.Writer.Status(), time.Since(start))
	}
}
