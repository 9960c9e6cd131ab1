// Package metrics содержит Prometheus-метрики сервера.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics of the server.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Mail dispatch metrics
	DispatchAttempts *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	DispatchRejected *prometheus.CounterVec
	QueueDepth       prometheus.Gauge
	LogWriteErrors   prometheus.Counter

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Auth metrics
	LoginAttempts *prometheus.CounterVec
	AuthRejected  *prometheus.CounterVec
}

// New creates metrics registered in a fresh registry together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers all metrics in reg
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		DispatchAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_mail_dispatch_total",
				Help: "Total number of mail dispatch attempts by outcome",
			},
			[]string{"succeeded"},
		),
		DispatchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "outreach_mail_dispatch_duration_seconds",
				Help:    "Mail dispatch attempt duration in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
		),
		DispatchRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_mail_dispatch_rejected_total",
				Help: "Total number of mail jobs rejected before an attempt",
			},
			[]string{"reason"},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "outreach_mail_queue_depth",
				Help: "Number of mail jobs waiting in the queue",
			},
		),
		LogWriteErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "outreach_mail_log_write_errors_total",
				Help: "Total number of failed delivery log writes",
			},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "outreach_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_login_attempts_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		AuthRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outreach_auth_rejected_total",
				Help: "Total number of requests rejected as unauthenticated",
			},
			[]string{"reason"},
		),
	}
}

// Handler returns the /metrics exposition handler
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveDispatch records one finished dispatch attempt
func (m *Metrics) ObserveDispatch(succeeded bool, d time.Duration) {
	if m == nil {
		return
	}
	m.DispatchAttempts.WithLabelValues(strconv.FormatBool(succeeded)).Inc()
	m.DispatchDuration.Observe(d.Seconds())
}

// RejectDispatch records a job that never reached an attempt
func (m *Metrics) RejectDispatch(reason string) {
	if m == nil {
		return
	}
	m.DispatchRejected.WithLabelValues(reason).Inc()
}

// SetQueueDepth updates the queue gauge
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// LogWriteFailed counts a failed delivery log write
func (m *Metrics) LogWriteFailed() {
	if m == nil {
		return
	}
	m.LogWriteErrors.Inc()
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveLogin records a login attempt result ("ok", "invalid", "error")
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// ObserveAuthRejected counts requests rejected by the identity check
func (m *Metrics) ObserveAuthRejected(reason string) {
	if m == nil {
		return
	}
	m.AuthRejected.WithLabelValues(reason).Inc()
}
