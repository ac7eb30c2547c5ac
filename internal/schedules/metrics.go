package schedules

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tickDurationHist = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "carecall",
		Name:      "schedule_tick_duration_seconds",
		Help:      "Time spent evaluating schedules in one tick, excluding dispatch.",
		Buckets:   prometheus.DefBuckets,
	})
	schedulesDueCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carecall",
		Name:      "schedules_due_total",
		Help:      "Schedules found due across all ticks.",
	})
	scheduleDispatchCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carecall",
			Name:      "schedule_dispatch_total",
			Help:      "Scheduled dispatch outcomes.",
		},
		[]string{"result"}, // dispatched, failed, already_claimed, guard_error, canceled, panic
	)
)
