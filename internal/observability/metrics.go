// Package observability holds Prometheus metrics and OpenTelemetry tracing helpers.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds all Prometheus metrics for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Collaborator metrics
	AIOperationsTotal *prometheus.CounterVec
	AILatencySeconds  *prometheus.HistogramVec
	CalendarSyncTotal *prometheus.CounterVec

	// Domain metrics
	MemoriesStoredTotal prometheus.Counter
	AudioCleanupTotal   *prometheus.CounterVec
}

// NewMetrics registers the service metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewMetricsWith(reg, reg)
}

// NewMetricsWith registers the service metrics on reg and exposes them from gatherer.
func NewMetricsWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aether_http_requests_total",
				Help: "Total HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aether_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"method", "route"},
		),

		AIOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aether_ai_operations_total",
				Help: "Total language model operations",
			},
			[]string{"operation", "model", "status"},
		),
		AILatencySeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aether_ai_latency_seconds",
				Help:    "Language model operation latency",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60},
			},
			[]string{"operation", "model"},
		),
		CalendarSyncTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aether_calendar_sync_total",
				Help: "Calendar event submissions by outcome",
			},
			[]string{"status"},
		),

		MemoriesStoredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "aether_memories_stored_total",
				Help: "Transcript memories persisted",
			},
		),
		AudioCleanupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aether_audio_cleanup_total",
				Help: "Temporary audio file removals by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordAIOperation records the outcome and latency of a language model call.
func (m *Metrics) RecordAIOperation(operation, model string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AIOperationsTotal.WithLabelValues(operation, model, statusOf(err)).Inc()
	m.AILatencySeconds.WithLabelValues(operation, model).Observe(elapsed.Seconds())
}

// RecordCalendarSync records a calendar submission outcome.
func (m *Metrics) RecordCalendarSync(status string) {
	if m == nil {
		return
	}
	m.CalendarSyncTotal.WithLabelValues(status).Inc()
}

// RecordMemoryStored counts a persisted memory.
func (m *Metrics) RecordMemoryStored() {
	if m == nil {
		return
	}
	m.MemoriesStoredTotal.Inc()
}

// RecordAudioCleanup counts a temp file removal attempt.
func (m *Metrics) RecordAudioCleanup(outcome string) {
	if m == nil {
		return
	}
	m.AudioCleanupTotal.WithLabelValues(outcome).Inc()
}

// GinMiddleware records request counts and latency per matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
