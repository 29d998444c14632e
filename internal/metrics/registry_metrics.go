// Package metrics exposes Prometheus instrumentation for the registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OutcomeSuccess labels operations that completed without error.
const OutcomeSuccess = "success"

// Metrics holds the registry's collectors.
type Metrics struct {
	// Operations counts registry and query operations by outcome.
	Operations *prometheus.CounterVec

	// CommitDuration tracks how long the commit transport takes per operation.
	CommitDuration *prometheus.HistogramVec

	// StepsConsumed counts step messages handled by the step consumer.
	StepsConsumed *prometheus.CounterVec
}

// New registers the registry collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_operations_total",
			Help: "The total number of registry operations by outcome",
		}, []string{"operation", "outcome"}),
		CommitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registry_commit_duration_seconds",
			Help:    "Time spent committing operations through the ledger transport",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		StepsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_steps_consumed_total",
			Help: "The total number of supply-chain step messages consumed by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveOperation counts one operation. outcome is OutcomeSuccess or an error code.
func (m *Metrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveCommit records the duration of one commit.
func (m *Metrics) ObserveCommit(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.CommitDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveStep counts one consumed step message.
func (m *Metrics) ObserveStep(outcome string) {
	if m == nil {
		return
	}
	m.StepsConsumed.WithLabelValues(outcome).Inc()
}
