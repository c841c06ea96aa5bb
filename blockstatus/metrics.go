package blockstatus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var batchLookups = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gavel_blockstatus_hash_lookups",
	Help: "Number of per-hash block status lookups issued",
})

var batchCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gavel_blockstatus_batch_cache_hits",
	Help: "Number of batch lookups served from cache",
})
