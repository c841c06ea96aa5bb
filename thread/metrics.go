package thread

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var threadFetchedEvents = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gavel_thread_fetched_events",
	Help: "Number of events fetched for thread reconstruction",
})

var threadNodeCount = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "gavel_thread_node_count",
	Help:    "Node count of reconstructed threads",
	Buckets: prometheus.ExponentialBuckets(1, 2, 10),
})
