package cma

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for pagination and task admission.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cma_pages_fetched_total",
		Help: "Total number of collection pages fetched by auto-pagination",
	})

	limiterInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cma_limiter_in_flight",
		Help: "Number of tasks currently running across all limiters",
	})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cma_cache_lookups_total",
		Help: "Job result cache lookups by outcome",
	}, []string{"outcome"}) // "hit", "miss"
)
