// Package metrics provides the Prometheus collectors for the Rosterdex
// service. Collectors live on a private registry so tests can build as many
// instances as they like. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rosterdex"

// Metrics bundles every collector the service records.
type Metrics struct {
	registry *prometheus.Registry

	catalogRequests *prometheus.CounterVec
	catalogLatency  *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	rosterWrites   *prometheus.CounterVec
	filterUpdates  *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

// New creates a Metrics instance with its own registry, including the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		catalogRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "requests_total",
			Help:      "Catalog API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		catalogLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "request_duration_seconds",
			Help:      "Catalog API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		rosterWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roster",
			Name:      "writes_total",
			Help:      "Roster persistence operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		filterUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "updates_total",
			Help:      "Filter engine facet updates by facet and outcome.",
		}, []string{"facet", "outcome"}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Open search sessions.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveCatalog records one catalog request.
func (m *Metrics) ObserveCatalog(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.catalogRequests.WithLabelValues(endpoint, outcome).Inc()
	m.catalogLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, http.StatusText(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RosterWrite records one persistence operation (create, update, delete).
func (m *Metrics) RosterWrite(operation, outcome string) {
	if m == nil {
		return
	}
	m.rosterWrites.WithLabelValues(operation, outcome).Inc()
}

// FilterUpdate records one facet update of the filter engine.
func (m *Metrics) FilterUpdate(facet, outcome string) {
	if m == nil {
		return
	}
	m.filterUpdates.WithLabelValues(facet, outcome).Inc()
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
