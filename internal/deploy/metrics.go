package deploy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "opsdeck_actions_total",
	Help: "Pipeline invocations by action and terminal state.",
}, []string{"action", "state"})
