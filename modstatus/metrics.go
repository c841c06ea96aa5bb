package modstatus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var statusListFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gavel_modstatus_list_fallbacks",
	Help: "Number of enforcement-list fetches which degraded to an empty list",
}, []string{"list"})
