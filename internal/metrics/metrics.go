// Package metrics exposes Prometheus counters for login outcomes, session store
// operations and calls to Shopify. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cartcash"

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeExpired = "expired"
)

type Metrics struct {
	registry       *prometheus.Registry
	authAttempts   *prometheus.CounterVec
	storeOps       *prometheus.CounterVec
	providerCalls  *prometheus.CounterVec
	liveCredential prometheus.Gauge
}

// New builds the collectors on a private registry so tests can create as many
// instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Login attempts by flow (oauth, static, header) and outcome.",
		}, []string{"flow", "outcome"}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_store_ops_total",
			Help:      "Session store operations by backend, operation and outcome.",
		}, []string{"backend", "op", "outcome"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Requests sent to Shopify by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		liveCredential: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_credentials",
			Help:      "Tenants with a credential in the in-memory store.",
		}),
	}
	reg.MustRegister(
		m.authAttempts,
		m.storeOps,
		m.providerCalls,
		m.liveCredential,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) AuthAttempt(flow, outcome string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(flow, outcome).Inc()
}

func (m *Metrics) StoreOp(backend, op, outcome string) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(backend, op, outcome).Inc()
}

func (m *Metrics) ProviderCall(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) SetLiveCredentials(n int) {
	if m == nil {
		return
	}
	m.liveCredential.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer is exposed for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
