package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	accountsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accounts_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	accountsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "accounts_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	accountsRegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accounts_registrations_total",
		Help: "Total registration attempts by outcome.",
	}, []string{"outcome"})

	accountsHealthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accounts_health_checks_total",
		Help: "Total dependency health probes by result.",
	}, []string{"result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		accountsRequestsTotal.WithLabelValues(method, path, status).Inc()
		accountsRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordRegistration records the outcome of one registration attempt.
func RecordRegistration(outcome string) {
	accountsRegistrationsTotal.WithLabelValues(outcome).Inc()
}

// RecordHealthCheck records a health check probe result.
func RecordHealthCheck(success bool) {
	if success {
		accountsHealthChecksTotal.WithLabelValues("success").Inc()
	} else {
		accountsHealthChecksTotal.WithLabelValues("failure").Inc()
	}
}
