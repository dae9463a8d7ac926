// Package metrics exposes Prometheus counters for authentication outcomes,
// guard decisions, login throttling and HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "whispey_auth"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	authResults    *prometheus.CounterVec
	guardDecisions *prometheus.CounterVec
	loginThrottled prometheus.Counter
	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		authResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_results_total",
			Help:      "Session verification outcomes by reason",
		}, []string{"reason"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Route guard decisions by path class and outcome",
		}, []string{"class", "outcome"}),
		loginThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_throttled_total",
			Help:      "Login attempts rejected by the attempt limiter",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.authResults, m.guardDecisions, m.loginThrottled, m.requests, m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordAuth implements auth.Recorder.
func (m *Metrics) RecordAuth(reason string) {
	m.authResults.WithLabelValues(reason).Inc()
}

// RecordGuard implements guard.Recorder.
func (m *Metrics) RecordGuard(class, outcome string) {
	m.guardDecisions.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) RecordLoginThrottled() {
	m.loginThrottled.Inc()
}

// Middleware counts requests by matched route template, never by raw path.
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

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
