// Package metrics exposes Prometheus instruments for reconciliation passes.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Row outcomes.
const (
	OutcomeInserted   = "inserted"
	OutcomeUpdated    = "updated"
	OutcomeSkipped    = "skipped"
	OutcomeEliminated = "eliminated"
)

type metrics struct {
	rowsTotal         *prometheus.CounterVec
	passTotal         *prometheus.CounterVec
	passDuration      *prometheus.HistogramVec
	resolverFallbacks *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracersync",
			Name:      "rows_total",
			Help:      "Rows processed by reconciliation passes, by outcome.",
		}, []string{"mode", "outcome"}),
		passTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracersync",
			Name:      "passes_total",
			Help:      "Completed reconciliation passes, by result.",
		}, []string{"mode", "result"}),
		passDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tracersync",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of one reconciliation pass including the aggregate refresh.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"mode"}),
		resolverFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tracersync",
			Name:      "resolver_fallbacks_total",
			Help:      "Entity resolutions that ended on a default instead of a name match.",
		}, []string{"entity"}),
	}
})

// AddRows records n rows with the given outcome.
func AddRows(mode, outcome string, n int) {
	if n <= 0 {
		return
	}
	metricsSingleton().rowsTotal.WithLabelValues(mode, outcome).Add(float64(n))
}

// ObservePass records the result and duration of one pass.
func ObservePass(mode string, started time.Time, err error) {
	m := metricsSingleton()
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.passTotal.WithLabelValues(mode, result).Inc()
	m.passDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}

// ResolverFallback counts a default-entity resolution for "faculty" or "program".
func ResolverFallback(entity string) {
	metricsSingleton().resolverFallbacks.WithLabelValues(entity).Inc()
}
