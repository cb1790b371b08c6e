package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters and histograms of the reservation path. Pass a
// nil registerer to get unregistered collectors, which is what tests want.
type Metrics struct {
	Reservations     *prometheus.CounterVec
	LockAcquisitions *prometheus.CounterVec
	LockRetries      prometheus.Counter
	ReserveDuration  prometheus.Histogram
	LockHoldDuration prometheus.Histogram
	ReconcileEvents  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Reservations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flashstock_reservations_total",
			Help: "Reservation attempts by outcome.",
		}, []string{"outcome"}),
		LockAcquisitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flashstock_lock_acquisitions_total",
			Help: "Lock acquisition attempts by result.",
		}, []string{"result"}),
		LockRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "flashstock_lock_retries_total",
			Help: "Lock acquisition retries after contention.",
		}),
		ReserveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "flashstock_reserve_duration_seconds",
			Help:    "End to end reservation latency.",
			Buckets: prometheus.DefBuckets,
		}),
		LockHoldDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "flashstock_lock_hold_duration_seconds",
			Help:    "Time between lock acquisition and release.",
			Buckets: prometheus.DefBuckets,
		}),
		ReconcileEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "flashstock_reconcile_events_total",
			Help: "Reconciliation events emitted for drifted counters.",
		}),
	}
}
