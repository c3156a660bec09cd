package pathing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultFound   = "found"
	resultNoPath  = "no_path"
	resultTrivial = "trivial"
)

var (
	// pathQueries counts answered path queries by result.
	pathQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "regionmap_path_queries_total",
		Help: "Total path queries by result",
	}, []string{"result"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "regionmap_path_cache_hits_total",
		Help: "Path queries answered from the pair cache",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "regionmap_path_cache_misses_total",
		Help: "Path queries that ran a search",
	})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "regionmap_path_search_duration_seconds",
		Help:    "A* search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14), // 50µs to ~400ms
	})
)
