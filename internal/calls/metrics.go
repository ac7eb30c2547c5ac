package calls

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carecall",
			Name:      "calls_dispatched_total",
			Help:      "Outbound call placement attempts.",
		},
		[]string{"kind", "result"}, // result: placed, placement_failed, store_error
	)
	placementDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carecall",
			Name:      "call_placement_duration_seconds",
			Help:      "Latency of provider call placement requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)
