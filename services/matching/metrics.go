package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var matchTransitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "match_transitions_total",
		Help: "Total number of match lifecycle transitions",
	},
	[]string{"transition", "reason"},
)
