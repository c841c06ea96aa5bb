package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decisionsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gavel_ledger_decisions_appended",
	Help: "Number of moderation decisions appended, by actor class",
}, []string{"class"})
