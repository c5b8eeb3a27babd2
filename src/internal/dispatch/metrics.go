// FILE: logweave/src/internal/dispatch/metrics.go
package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are registered only when the engine is given a registerer
type metrics struct {
	written    *prometheus.CounterVec
	failed     *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	queueDepth *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		written: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logweave",
			Name:      "entries_written_total",
			Help:      "Log entries written successfully, per writer",
		}, []string{"writer"}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logweave",
			Name:      "entries_failed_total",
			Help:      "Log entries whose write returned an error or panicked, per writer",
		}, []string{"writer"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logweave",
			Name:      "entries_dropped_total",
			Help:      "Log entries discarded by backpressure or shutdown, per writer and reason",
		}, []string{"writer", "reason"}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "logweave",
			Name:      "queue_depth",
			Help:      "Entries waiting in the async queue of a writer",
		}, []string{"writer"}),
	}
}
