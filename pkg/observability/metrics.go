package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	LoginsTotal        *prometheus.CounterVec
	RegistrationsTotal prometheus.Counter
	ResetEmailsTotal   *prometheus.CounterVec

	// Voting metrics
	VotesCastTotal     prometheus.Counter
	VotesRejectedTotal *prometheus.CounterVec

	// Session metrics
	SessionsCreatedTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eballot_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eballot_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eballot_logins_total",
				Help: "Total number of successful logins by provider",
			},
			[]string{"provider"},
		),
		RegistrationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "eballot_registrations_total",
				Help: "Total number of local account registrations",
			},
		),
		ResetEmailsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eballot_reset_emails_total",
				Help: "Total number of password reset dispatch attempts",
			},
			[]string{"outcome"},
		),
		VotesCastTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "eballot_votes_cast_total",
				Help: "Total number of accepted votes",
			},
		),
		VotesRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eballot_votes_rejected_total",
				Help: "Total number of rejected vote attempts by reason",
			},
			[]string{"reason"},
		),
		SessionsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "eballot_sessions_created_total",
				Help: "Total number of sessions established",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.RegistrationsTotal,
		m.ResetEmailsTotal,
		m.VotesCastTotal,
		m.VotesRejectedTotal,
		m.SessionsCreatedTotal,
	)

	return m
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an HTTP handler with request metrics
func (m *Metrics) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
