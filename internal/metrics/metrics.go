// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the narrow interface the rest of the app records through.
// Services and middleware depend on this, not on the Prometheus types, so
// tests can pass Nop and stay dependency-free.
type Recorder interface {
	RecordHTTPRequest(statusCode int, duration time.Duration)
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordEstimateServed()
	RecordEstimateMiss()
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpLatency     prometheus.Histogram
	loginSuccess    prometheus.Counter
	loginFailure    prometheus.Counter
	estimatesServed prometheus.Counter
	estimateMisses  prometheus.Counter
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector with its own registry and registers
// all metrics on it. Expose them via Handler.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carvalue_http_requests_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carvalue_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carvalue_login_success_total",
			Help: "Successful logins.",
		}),
		loginFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carvalue_login_failure_total",
			Help: "Failed login attempts (bad email or password).",
		}),
		estimatesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carvalue_estimates_served_total",
			Help: "Price estimates computed from at least one comparable report.",
		}),
		estimateMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carvalue_estimate_misses_total",
			Help: "Estimate queries that matched no comparable report.",
		}),
	}

	registry.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.loginSuccess,
		c.loginFailure,
		c.estimatesServed,
		c.estimateMisses,
	)

	return c
}

// Handler returns the /metrics exposition handler for this collector's
// registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordHTTPRequest(statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordLoginSuccess()   { c.loginSuccess.Inc() }
func (c *Collector) RecordLoginFailure()   { c.loginFailure.Inc() }
func (c *Collector) RecordEstimateServed() { c.estimatesServed.Inc() }
func (c *Collector) RecordEstimateMiss()   { c.estimateMisses.Inc() }

// Nop is a Recorder that records nothing. For tests.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) RecordHTTPRequest(int, time.Duration) {}
func (Nop) RecordLoginSuccess()                  {}
func (Nop) RecordLoginFailure()                  {}
func (Nop) RecordEstimateServed()                {}
func (Nop) RecordEstimateMiss()                  {}
