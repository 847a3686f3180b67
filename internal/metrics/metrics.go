// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AuthzDecisions counts authorization checks by action and outcome.
	AuthzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "execdash_authz_decisions_total",
			Help: "Authorization decisions by action and result.",
		},
		[]string{"action", "result"},
	)

	// GuardRedirects counts page requests bounced by a route guard.
	GuardRedirects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "execdash_guard_redirects_total",
			Help: "Route guard redirects by guard and target.",
		},
		[]string{"guard", "target"},
	)

	// AuditWrites counts audit rows by outcome: written, failed, dropped.
	AuditWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "execdash_audit_writes_total",
			Help: "Audit log writes by outcome.",
		},
		[]string{"outcome"},
	)

	// WorkspaceConflicts counts get-or-create calls that lost the insert race.
	WorkspaceConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "execdash_workspace_create_conflicts_total",
		Help: "Workspace creations resolved by re-reading after a conflict.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

var registerOnce sync.Once

// Init registers every collector in the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			AuthzDecisions,
			GuardRedirects,
			AuditWrites,
			WorkspaceConflicts,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request count and latency per route template.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
