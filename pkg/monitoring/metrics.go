package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "service"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	// Model analysis metrics
	analysisRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_requests_total",
			Help: "Total number of model analysis requests",
		},
		[]string{"status", "service"},
	)

	analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "Duration of model analysis requests in seconds",
			Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"service"},
	)

	// Dashboard pipeline metrics
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_pipeline_runs_total",
			Help: "Total number of dashboard pipeline runs",
		},
		[]string{"status", "service"},
	)

	// Password reset metrics
	resetRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "password_reset_requests_total",
			Help: "Total number of password reset requests",
		},
		[]string{"status", "service"},
	)

	// Retention cleanup metrics
	cleanupFilesDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cleanup_files_deleted_total",
			Help: "Total number of files removed by retention cleanup",
		},
		[]string{"service"},
	)

	cleanupBytesFreed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cleanup_bytes_freed_total",
			Help: "Total bytes freed by retention cleanup",
		},
		[]string{"service"},
	)
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	serviceName string
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(serviceName string) *MetricsCollector {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		analysisRequestsTotal,
		analysisDuration,
		pipelineRunsTotal,
		resetRequestsTotal,
		cleanupFilesDeleted,
		cleanupBytesFreed,
	)

	return &MetricsCollector{
		serviceName: serviceName,
	}
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, m.serviceName).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, m.serviceName).Observe(duration.Seconds())
}

// RecordAnalysis records one model analysis attempt
func (m *MetricsCollector) RecordAnalysis(status string, duration time.Duration) {
	analysisRequestsTotal.WithLabelValues(status, m.serviceName).Inc()
	analysisDuration.WithLabelValues(m.serviceName).Observe(duration.Seconds())
}

// RecordPipelineRun records one dashboard pipeline run
func (m *MetricsCollector) RecordPipelineRun(status string) {
	pipelineRunsTotal.WithLabelValues(status, m.serviceName).Inc()
}

// RecordResetRequest records one password reset request
func (m *MetricsCollector) RecordResetRequest(status string) {
	resetRequestsTotal.WithLabelValues(status, m.serviceName).Inc()
}

// RecordCleanup records one retention sweep
func (m *MetricsCollector) RecordCleanup(filesDeleted int, bytesFreed float64) {
	cleanupFilesDeleted.WithLabelValues(m.serviceName).Add(float64(filesDeleted))
	cleanupBytesFreed.WithLabelValues(m.serviceName).Add(bytesFreed)
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}
