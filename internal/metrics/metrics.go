// Package metrics holds the prometheus collectors shared by the store,
// the live push hub and the event publisher. A nil *Metrics is valid and
// records nothing, so tests can pass nil.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "netplay"

// Transaction outcomes recorded by the document store.
const (
	OutcomeCommitted = "committed"
	OutcomeUnchanged = "unchanged"
	OutcomeAborted   = "aborted"
	OutcomeConflict  = "conflict"
	OutcomeExhausted = "exhausted"
)

type Metrics struct {
	storeTx     *prometheus.CounterVec
	liveConns   *prometheus.GaugeVec
	events      *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		storeTx: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "transactions_total",
			Help:      "Document store transaction attempts by backend and outcome.",
		}, []string{"backend", "outcome"}),
		liveConns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "connections",
			Help:      "Open websocket connections by topic.",
		}, []string{"topic"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Club events handed to the broker by type and result.",
		}, []string{"type", "result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Committed roster and board operations.",
		}, []string{"component", "operation"}),
	}
	reg.MustRegister(m.storeTx, m.liveConns, m.events, m.transitions)
	return m
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (m *Metrics) StoreTx(backend, outcome string) {
	if m == nil {
		return
	}
	m.storeTx.WithLabelValues(backend, outcome).Inc()
}

func (m *Metrics) LiveConnected(topic string) {
	if m == nil {
		return
	}
	m.liveConns.WithLabelValues(topic).Inc()
}

func (m *Metrics) LiveDisconnected(topic string) {
	if m == nil {
		return
	}
	m.liveConns.WithLabelValues(topic).Dec()
}

func (m *Metrics) EventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.events.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) Transition(component, operation string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(component, operation).Inc()
}
