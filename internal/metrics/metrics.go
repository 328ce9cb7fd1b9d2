package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbnco_proxy_upstream_calls_total",
			Help: "Total ARBNCO readings API calls",
		},
		[]string{"status"},
	)

	UpstreamLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arbnco_proxy_upstream_latency_seconds",
			Help:    "ARBNCO readings API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CacheResults counts cache lookups by outcome: hit, miss, shared or error.
	CacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbnco_proxy_cache_results_total",
			Help: "Reading cache lookups by result",
		},
		[]string{"result"},
	)
)
