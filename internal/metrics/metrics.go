// Package metrics collects Prometheus metrics for the event board.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements application.Recorder and the HTTP and job hooks.
type Collector struct {
	operations     *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	httpLatency    prometheus.Histogram
	sessionsPurged prometheus.Counter
	rateLimited    prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventboard_operations_total",
			Help: "Completed service operations by outcome.",
		}, []string{"service", "operation", "outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventboard_http_status_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventboard_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventboard_sessions_purged_total",
			Help: "Expired sessions removed by the maintenance job.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventboard_rate_limited_total",
			Help: "Requests rejected by the per-user rate limiter.",
		}),
	}

	reg.MustRegister(
		c.operations,
		c.httpStatus,
		c.httpLatency,
		c.sessionsPurged,
		c.rateLimited,
	)

	return c
}

// ObserveOperation counts a finished service operation. An empty errorKind is
// recorded as "ok".
func (c *Collector) ObserveOperation(service, operation, errorKind string) {
	if errorKind == "" {
		errorKind = "ok"
	}
	c.operations.WithLabelValues(service, operation, errorKind).Inc()
}

// RecordHTTPStatus counts a response status code.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency observes the duration of a request.
func (c *Collector) RecordHTTPLatency(d time.Duration) {
	c.httpLatency.Observe(d.Seconds())
}

// RecordSessionsPurged adds the number of sessions a purge removed.
func (c *Collector) RecordSessionsPurged(count int64) {
	if count > 0 {
		c.sessionsPurged.Add(float64(count))
	}
}

// RecordRateLimited counts a rejected request.
func (c *Collector) RecordRateLimited() {
	c.rateLimited.Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
