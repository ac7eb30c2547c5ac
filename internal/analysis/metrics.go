package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var analysisCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "carecall",
		Name:      "member_analysis_total",
		Help:      "Member status analyses by resulting tag or failure.",
	},
	[]string{"result"},
)

var assistCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "carecall",
		Name:      "assist_requests_total",
		Help:      "Summary and topic requests by outcome.",
	},
	[]string{"feature", "result"},
)
