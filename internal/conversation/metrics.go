package conversation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	finalizeCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carecall",
			Name:      "calls_finalized_total",
			Help:      "Finalize attempts by outcome.",
		},
		// outcome: written, already_finalized, no_session, no_record, error
		[]string{"status", "outcome"},
	)
	completionFallbackCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carecall",
		Name:      "completion_fallbacks_total",
		Help:      "Assistant turns replaced by the fallback line after a completion failure.",
	})
	turnsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carecall",
		Name:      "conversation_user_turns_total",
		Help:      "Callee utterances accepted into a live session.",
	})
)
