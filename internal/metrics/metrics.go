// Package metrics holds the Prometheus collectors shared across the simulator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bootstraps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "computesim_bootstraps_total",
		Help: "Registry bootstrap attempts by storage mode and outcome",
	}, []string{"mode", "outcome"})

	registrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "computesim_computations_registered_total",
		Help: "Computation definitions persisted into a computation registry",
	})

	documentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "computesim_document_writes_total",
		Help: "Document store writes by adapter and outcome",
	}, []string{"adapter", "outcome"})

	stepDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "computesim_step_duration_ms",
		Help:    "Latency of pipeline step invocations in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	}, []string{"side", "outcome"})
)

// ObserveBootstrap records one bootstrap attempt.
func ObserveBootstrap(local bool, err error) {
	mode := "remote"
	if local {
		mode = "local"
	}
	bootstraps.WithLabelValues(mode, outcome(err)).Inc()
}

// IncRegistrations counts one persisted computation definition.
func IncRegistrations() {
	registrations.Inc()
}

// ObserveDocumentWrite records one document store write.
func ObserveDocumentWrite(adapter string, err error) {
	documentWrites.WithLabelValues(adapter, outcome(err)).Inc()
}

// ObserveStep records the latency of one local or remote step invocation.
func ObserveStep(side string, started time.Time, err error) {
	stepDurationMs.WithLabelValues(side, outcome(err)).Observe(float64(time.Since(started).Microseconds()) / 1000.0)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
