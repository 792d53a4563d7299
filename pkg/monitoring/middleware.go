package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sahti/patient-portal/pkg/logger"
)

// MonitoringMiddleware records metrics and request logs for every call
type MonitoringMiddleware struct {
	metrics *MetricsCollector
	logger  *logger.Logger
}

// NewMonitoringMiddleware creates a new monitoring middleware
func NewMonitoringMiddleware(metrics *MetricsCollector, log *logger.Logger) *MonitoringMiddleware {
	return &MonitoringMiddleware{
		metrics: metrics,
		logger:  log,
	}
}

// HTTPMiddleware wraps a handler with metrics and request logging
func (mm *MonitoringMiddleware) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		wrapper := &monitoringResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		wrapper.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		mm.metrics.RecordHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(wrapper.statusCode), duration)
		mm.logger.HTTPRequest(r.Method, r.URL.Path, r.RemoteAddr, wrapper.statusCode, duration.Milliseconds())
	})
}

// monitoringResponseWriter captures the response status code
type monitoringResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *monitoringResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
