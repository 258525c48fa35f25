package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the dashboard
// gateway.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics for the dashboard's own surface.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Upstream metrics for calls to the C-CAP backend.
	UpstreamRequestsTotal *prometheus.CounterVec
	UpstreamDuration      *prometheus.HistogramVec
	UpstreamErrorsTotal   *prometheus.CounterVec

	// Rate limiting.
	RateLimitRejectionsTotal *prometheus.CounterVec

	// Auth flows.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccapd_http_requests_total",
			Help: "Total number of HTTP requests served by the dashboard.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ccapd_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		UpstreamRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccapd_upstream_requests_total",
			Help: "Total number of requests made to the C-CAP backend.",
		}, []string{"resource", "method", "status_code"}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ccapd_upstream_duration_seconds",
			Help:    "C-CAP backend request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource"}),

		UpstreamErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccapd_upstream_errors_total",
			Help: "Total number of failed backend requests by error type.",
		}, []string{"error_type"}),

		RateLimitRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccapd_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}, []string{"scope"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccapd_auth_failures_total",
			Help: "Total number of failed logins and session restorations.",
		}, []string{"flow"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ccapd_auth_successes_total",
			Help: "Total number of successful logins and session restorations.",
		}, []string{"flow"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ccapd_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.UpstreamRequestsTotal,
		m.UpstreamDuration,
		m.UpstreamErrorsTotal,
		m.RateLimitRejectionsTotal,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	// Register Go runtime and process collectors.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterSessionCollector registers a collector exposing the number of
// live sessions in the session store.
func (m *Metrics) RegisterSessionCollector(countFunc SessionCountFunc) {
	m.registry.MustRegister(NewSessionCollector(countFunc))
}

// IncHTTPRequest increments the HTTP request counter.
func (m *Metrics) IncHTTPRequest(method, pathPattern string, statusCode int) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, fmt.Sprintf("%d", statusCode)).Inc()
}

// ObserveHTTPDuration records one dashboard request duration.
func (m *Metrics) ObserveHTTPDuration(method, pathPattern string, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(seconds)
}

// IncUpstreamRequest increments the backend request counter.
func (m *Metrics) IncUpstreamRequest(resource, method string, statusCode int) {
	m.UpstreamRequestsTotal.WithLabelValues(resource, method, fmt.Sprintf("%d", statusCode)).Inc()
}

// ObserveUpstreamDuration records one backend request duration.
func (m *Metrics) ObserveUpstreamDuration(resource string, seconds float64) {
	m.UpstreamDuration.WithLabelValues(resource).Observe(seconds)
}

// IncUpstreamError increments the backend error counter by error type.
func (m *Metrics) IncUpstreamError(errorType string) {
	m.UpstreamErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncRateLimitRejection increments the rate limit rejection counter.
func (m *Metrics) IncRateLimitRejection(scope string) {
	m.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
}

// IncAuthFailure increments the auth failure counter for the given flow.
func (m *Metrics) IncAuthFailure(flow string) {
	m.AuthFailuresTotal.WithLabelValues(flow).Inc()
}

// IncAuthSuccess increments the auth success counter for the given flow.
func (m *Metrics) IncAuthSuccess(flow string) {
	m.AuthSuccessesTotal.WithLabelValues(flow).Inc()
}
