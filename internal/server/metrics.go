package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the API's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	indexed  *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them, plus the Go runtime
// and process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalograg",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.latency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalograg",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	m.outcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalograg",
			Name:      "operations_total",
			Help:      "Index, search and chat operations by result",
		},
		[]string{"operation", "result"},
	)

	m.indexed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "catalograg",
			Name:      "collection_documents",
			Help:      "Documents in a collection after its last rebuild through the API",
		},
		[]string{"collection"},
	)

	m.registry.MustRegister(
		m.requests, m.latency, m.outcomes, m.indexed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry served on /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request count and latency by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) observe(operation string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.outcomes.WithLabelValues(operation, result).Inc()
}
