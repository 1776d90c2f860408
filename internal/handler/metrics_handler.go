package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// MetricsHandler handles the Prometheus metrics endpoint
type MetricsHandler struct {
}

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bucketd_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "path", "status"})

	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bucketd_active_connections",
		Help: "Number of active connections",
	})

	totalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bucketd_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	fileUploadSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bucketd_file_upload_size_bytes",
		Help:    "Size of uploaded files in bytes",
		Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 100 * 1024 * 1024},
	})

	filesUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bucketd_files_uploaded_total",
		Help: "Total number of files uploaded",
	})

	storageUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bucketd_storage_used_bytes",
		Help: "Total storage used in bytes",
	})

	authFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bucketd_auth_failures_total",
		Help: "Total number of failed authentication attempts",
	}, []string{"credential"})

	permissionDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bucketd_permission_denials_total",
		Help: "Total number of requests denied by permission checks",
	}, []string{"permission"})

	quotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bucketd_quota_rejections_total",
		Help: "Total number of uploads rejected by bucket quotas",
	})
)

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// Handler returns the Prometheus metrics handler for Fiber
func (h *MetricsHandler) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		mfs, err := prometheus.DefaultGatherer.Gather()
		if err != nil {
			return c.Status(500).SendString("Failed to gather metrics")
		}

		var sb strings.Builder
		for _, mf := range mfs {
			if _, err := expfmt.MetricFamilyToText(&sb, mf); err != nil {
				return c.Status(500).SendString("Failed to format metrics")
			}
		}

		c.Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		return c.SendString(sb.String())
	}
}

// MetricsMiddleware records HTTP metrics for each request
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		activeConnections.Inc()
		defer activeConnections.Dec()
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		path := c.Route().Path
		if path == "" {
			path = "__unmatched__"
		}

		statusStr := "2xx"
		switch {
		case status >= 500:
			statusStr = "5xx"
		case status >= 400:
			statusStr = "4xx"
		case status >= 300:
			statusStr = "3xx"
		}

		totalRequests.WithLabelValues(c.Method(), path, statusStr).Inc()
		httpDuration.WithLabelValues(c.Method(), path, statusStr).Observe(time.Since(start).Seconds())

		return err
	}
}

// RecordFileUpload records metrics for file uploads
func RecordFileUpload(size float64) {
	fileUploadSize.Observe(size)
	filesUploaded.Inc()
}

// UpdateStorageUsed updates the storage used gauge
func UpdateStorageUsed(bytes float64) {
	storageUsed.Set(bytes)
}

// RecordAuthFailure increments the failed auth counter with a credential label.
func RecordAuthFailure(credential string) {
	authFailures.WithLabelValues(credential).Inc()
}

// RecordPermissionDenial increments the denial counter for a permission.
func RecordPermissionDenial(permission string) {
	permissionDenials.WithLabelValues(permission).Inc()
}

// RecordQuotaRejection increments the quota rejection counter.
func RecordQuotaRejection() {
	quotaRejections.Inc()
}
