// Package metrics registers and records the service's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the merge service.
type Metrics struct {
	// Merge pipeline metrics
	MergeRequests prometheus.Counter
	MergeFailures *prometheus.CounterVec
	MergeDuration prometheus.Histogram
	OutputBytes   prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		MergeRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "overdub_merge_requests_total",
			Help: "Total number of merge pipeline invocations",
		}),
		MergeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "overdub_merge_failures_total",
			Help: "Total number of failed merge invocations by pipeline stage",
		}, []string{"stage"}),
		MergeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "overdub_merge_duration_seconds",
			Help:    "End-to-end duration of successful merge invocations",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1.7 minutes
		}),
		OutputBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "overdub_output_size_bytes",
			Help:    "Size of published merged audio objects",
			Buckets: prometheus.ExponentialBuckets(64*1024, 2, 10), // 64KB to ~64MB
		}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "overdub_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "overdub_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// All record methods tolerate a nil receiver so tests can run the pipeline
// without touching the process-wide default registry.

// RecordMergeStarted counts one pipeline invocation.
func (m *Metrics) RecordMergeStarted() {
	if m == nil {
		return
	}
	m.MergeRequests.Inc()
}

// RecordMergeCompleted observes a successful invocation's duration and the
// published object size.
func (m *Metrics) RecordMergeCompleted(seconds, sizeBytes float64) {
	if m == nil {
		return
	}
	m.MergeDuration.Observe(seconds)
	m.OutputBytes.Observe(sizeBytes)
}

// RecordMergeFailure counts a failed invocation for the given stage.
func (m *Metrics) RecordMergeFailure(stage string) {
	if m == nil {
		return
	}
	m.MergeFailures.WithLabelValues(stage).Inc()
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}
