// Package metrics holds the Prometheus collectors for graph mutations, the
// cascade engine and the evidence classifier.
//
// Every method is safe on a nil *Metrics so callers that do not care about
// metrics can pass nil.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hypograph"

// Metrics is one set of collectors bound to its own registry.
type Metrics struct {
	registry *prometheus.Registry

	// mutations counts Mutation API calls.
	// Labels: op (operation name), outcome (ok, rejected, failed)
	mutations *prometheus.CounterVec

	// cascadeUpdates counts confidence values written by the cascade engine.
	cascadeUpdates prometheus.Counter

	// cascadeCycles counts batch or cascade runs that stopped on a cycle.
	cascadeCycles prometheus.Counter

	// classifierFallbacks counts classifications replaced by the fallback.
	// Labels: reason (error, timeout, parse)
	classifierFallbacks *prometheus.CounterVec
}

// Mutation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// New registers a fresh set of collectors on a private registry, together
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Mutation API calls by operation and outcome",
		}, []string{"op", "outcome"}),
		cascadeUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_updates_total",
			Help:      "Confidence values rewritten by the cascade engine",
		}),
		cascadeCycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_cycles_total",
			Help:      "Recalculations that stopped early on a cycle",
		}),
		classifierFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_fallbacks_total",
			Help:      "Evidence classifications replaced by the neutral fallback",
		}, []string{"reason"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveMutation counts one Mutation API call.
func (m *Metrics) ObserveMutation(op, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, outcome).Inc()
}

// AddCascadeUpdates counts n persisted confidence changes.
func (m *Metrics) AddCascadeUpdates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cascadeUpdates.Add(float64(n))
}

// IncCascadeCycle counts one run cut short by a cycle.
func (m *Metrics) IncCascadeCycle() {
	if m == nil {
		return
	}
	m.cascadeCycles.Inc()
}

// IncClassifierFallback counts one fallback classification.
func (m *Metrics) IncClassifierFallback(reason string) {
	if m == nil {
		return
	}
	m.classifierFallbacks.WithLabelValues(reason).Inc()
}
