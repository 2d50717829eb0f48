// Package observability defines the prometheus metrics a client instance
// publishes. Every client owns its own registry so two clients in one
// process never collide on metric registration.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace defines the global prefix for all metrics (e.g., verdandi_...).
const namespace = "verdandi"

// Metrics holds the instruments of one client instance.
type Metrics struct {
	// ConfigFetches counts configuration fetch attempts by result.
	// Metric: verdandi_configuration_fetches_total{result="success|failure"}
	ConfigFetches *prometheus.CounterVec

	// TrackingBatches counts dispatched tracking batches by result.
	// Metric: verdandi_tracking_batches_total{result="success|failure"}
	TrackingBatches *prometheus.CounterVec

	// TrackingLines counts individual tracking lines handed to the
	// collector, successful batches only.
	// Metric: verdandi_tracking_lines_total
	TrackingLines prometheus.Counter

	// PurgedVisitors counts visitor slots removed by the purge sweep.
	// Metric: verdandi_visitors_purged_total
	PurgedVisitors prometheus.Counter

	// ActiveVisitors reports the current size of the visitor store.
	// Metric: verdandi_visitors_active
	ActiveVisitors prometheus.GaugeFunc
}

// New registers the client instruments on the given registerer.
// activeVisitors is sampled on every scrape.
func New(reg prometheus.Registerer, activeVisitors func() float64) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ConfigFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "configuration_fetches_total",
			Help:      "Total configuration fetch attempts",
		}, []string{"result"}),

		TrackingBatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_batches_total",
			Help:      "Total tracking batches dispatched",
		}, []string{"result"}),

		TrackingLines: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_lines_total",
			Help:      "Total tracking lines delivered to the collector",
		}),

		PurgedVisitors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visitors_purged_total",
			Help:      "Total visitor slots removed by the purge sweep",
		}),

		ActiveVisitors: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visitors_active",
			Help:      "Current number of visitors held in memory",
		}, activeVisitors),
	}
}

// result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)
