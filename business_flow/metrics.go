package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	allocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "numbay_allocations_total",
			Help: "Number allocation attempts partitioned by outcome",
		},
		[]string{"outcome"},
	)

	holdsAllocated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "numbay_holds_allocated_total",
			Help: "Temporary holds created by successful allocations",
		},
	)

	promotionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "numbay_hold_promotions_total",
			Help: "Holds promoted to permanent (billed exactly once each)",
		},
	)

	holdsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "numbay_holds_swept_total",
			Help: "Expired temporary holds reclaimed by the sweeper",
		},
	)
)
