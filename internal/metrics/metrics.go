// Package metrics defines Prometheus metrics for the CRM engine pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EventsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_events_consumed_total",
			Help: "Events received from the bus, by topic",
		},
		[]string{"topic"},
	)

	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_events_dropped_total",
			Help: "Events dropped before persistence, by reason",
		},
		[]string{"reason"},
	)

	BatchFlushes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_batch_flushes_total",
			Help: "Communication-log batch flushes",
		},
	)

	BatchFlushSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crm_batch_flush_size",
			Help:    "Items per communication-log batch flush",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	BatchQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crm_batch_queue_depth",
			Help: "Communication-log events waiting for the next flush",
		},
	)

	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_deliveries_total",
			Help: "Per-recipient delivery attempts, by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsConsumed, EventsDropped,
		BatchFlushes, BatchFlushSize, BatchQueueDepth,
		Deliveries,
	)
}
