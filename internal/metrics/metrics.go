// Package metrics provides Prometheus instrumentation for the Clearview
// trust core.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for billing, credential, and HTTP activity.
type Metrics struct {
	registry *prometheus.Registry

	webhookEvents        *prometheus.CounterVec
	keyRotations         prometheus.Counter
	keyVerifications     *prometheus.CounterVec
	graceKeysSwept       prometheus.Counter
	entitlementDecisions *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		webhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "clearview",
				Subsystem: "billing",
				Name:      "webhook_events_total",
				Help:      "Billing webhook events by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		keyRotations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "clearview",
				Subsystem: "credentials",
				Name:      "key_rotations_total",
				Help:      "Total API key rotations",
			},
		),
		keyVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "clearview",
				Subsystem: "credentials",
				Name:      "key_verifications_total",
				Help:      "API key verification attempts by result",
			},
			[]string{"result"},
		),
		graceKeysSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "clearview",
				Subsystem: "credentials",
				Name:      "grace_keys_swept_total",
				Help:      "Expired rotation grace keys cleared by the sweeper",
			},
		),
		entitlementDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "clearview",
				Subsystem: "entitlement",
				Name:      "decisions_total",
				Help:      "Entitlement gate decisions by outcome",
			},
			[]string{"allowed"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "clearview",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by method, route, and status",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route", "status"},
		),
	}

	registry.MustRegister(
		m.webhookEvents,
		m.keyRotations,
		m.keyVerifications,
		m.graceKeysSwept,
		m.entitlementDecisions,
		m.httpRequestDuration,
	)

	return m
}

// Handler returns the exposition endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveWebhookEvent records a processed webhook event.
func (m *Metrics) ObserveWebhookEvent(eventType, outcome string) {
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// ObserveKeyRotation records one API key rotation.
func (m *Metrics) ObserveKeyRotation() {
	m.keyRotations.Inc()
}

// ObserveKeyVerification records one verification attempt.
func (m *Metrics) ObserveKeyVerification(result string) {
	m.keyVerifications.WithLabelValues(result).Inc()
}

// ObserveGraceKeysSwept adds cleared grace keys to the sweep counter.
func (m *Metrics) ObserveGraceKeysSwept(cleared int) {
	m.graceKeysSwept.Add(float64(cleared))
}

// ObserveEntitlementDecision records one gate decision.
func (m *Metrics) ObserveEntitlementDecision(allowed bool) {
	m.entitlementDecisions.WithLabelValues(strconv.FormatBool(allowed)).Inc()
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
