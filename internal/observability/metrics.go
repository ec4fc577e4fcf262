package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/reactiverates/users/security"
)

// Transport labels
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// AuthOutcomes lists every outcome label recorded by RecordAuthentication
var AuthOutcomes = []string{
	string(security.OutcomeAuthenticated),
	string(security.OutcomeAnonymous),
	string(security.OutcomeInvalidSignature),
	string(security.OutcomeMissingSubject),
	string(security.OutcomeWrongType),
	string(security.OutcomeNotYetValid),
	string(security.OutcomeExpired),
}

// AuthMetrics records authentication attempts on both transports
type AuthMetrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	registry *prometheus.Registry
}

// NewAuthMetrics creates the metrics on a private registry that also carries
// the Go runtime and process collectors
func NewAuthMetrics(namespace string) *AuthMetrics {
	if namespace == "" {
		namespace = "users"
	}

	m := &AuthMetrics{
		registry: prometheus.NewRegistry(),
	}

	m.attempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Total number of bearer token authentication attempts",
		},
		[]string{"transport", "outcome"},
	)

	m.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "duration_seconds",
			Help:      "Bearer token authentication duration in seconds",
			Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"transport"},
	)

	m.registry.MustRegister(
		m.attempts,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.init()

	return m
}

// init creates every label combination so series exist before the first request
func (m *AuthMetrics) init() {
	for _, transport := range []string{TransportHTTP, TransportGRPC} {
		for _, outcome := range AuthOutcomes {
			m.attempts.WithLabelValues(transport, outcome)
		}
		m.duration.WithLabelValues(transport)
	}
}

// RecordAuthentication records one attempt. A nil receiver is a no-op.
func (m *AuthMetrics) RecordAuthentication(transport, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(transport, outcome).Inc()
	m.duration.WithLabelValues(transport).Observe(duration.Seconds())
}

// Registry returns the Prometheus registry
func (m *AuthMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *AuthMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
