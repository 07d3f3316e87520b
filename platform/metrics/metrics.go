// Package metrics provides Prometheus metrics for the dashboard backend.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dim"

var (
	// ClinicSyncsTotal tracks per-clinic sync attempts by status
	ClinicSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "clinic_syncs_total",
			Help:      "Total number of clinic syncs by status",
		},
		[]string{"status"},
	)

	// ClinicSyncDuration tracks how long one clinic sync takes
	ClinicSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "clinic_duration_seconds",
			Help:      "Duration of a single clinic sync in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// RecordsUpsertedTotal tracks records written by kind
	RecordsUpsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "records_upserted_total",
			Help:      "Total number of records upserted by kind",
		},
		[]string{"kind"},
	)

	// RecordsSkippedTotal tracks upstream records rejected by validation
	RecordsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "records_skipped_total",
			Help:      "Total number of upstream records dropped by validation",
		},
		[]string{"kind"},
	)

	// SweepsTotal tracks full sweeps by outcome
	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "sweeps_total",
			Help:      "Total number of sweeps by outcome",
		},
		[]string{"outcome"},
	)

	// UpstreamRequestsTotal tracks outbound CRM requests
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of outbound CRM requests",
		},
		[]string{"endpoint", "status_code"},
	)

	// UpstreamRequestDuration tracks outbound CRM request duration
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound CRM requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	// ReportsGeneratedTotal tracks KPI reports by status
	ReportsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "reports_total",
			Help:      "Total number of KPI reports by status",
		},
		[]string{"status"},
	)

	// HTTPRequestDuration tracks inbound API latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of inbound HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status_code"},
	)
)

// RecordUpstream records one outbound CRM call.
func RecordUpstream(endpoint string, status int, elapsed time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Middleware records inbound request latency keyed by the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
