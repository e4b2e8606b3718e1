package middleware

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
		[]string{"method", "endpoint", "status", "service"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	matchOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_operations_total",
			Help: "Total number of match operations by result",
		},
		[]string{"operation", "status"},
	)

	matchOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "match_operation_duration_seconds",
			Help:    "Duration of match operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)
)

func PrometheusMiddleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
			serviceName,
		).Inc()

		httpRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			serviceName,
		).Observe(duration)
	}
}

// RecordMatchOperation учитывает вызов координатора. status - "ok", код бизнес-ошибки или "error"
func RecordMatchOperation(operation, status string, duration time.Duration) {
	matchOperationsTotal.WithLabelValues(operation, status).Inc()
	matchOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
