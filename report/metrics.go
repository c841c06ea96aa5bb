package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var contextsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gavel_report_contexts_built",
	Help: "Number of report contexts aggregated",
}, []string{"target_type"})

var contextBuildErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gavel_report_context_errors",
	Help: "Number of report context aggregations which failed",
})
