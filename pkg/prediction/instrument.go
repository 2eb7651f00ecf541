package prediction

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Self-instrumentation of the prediction engine, exposed on /metrics.
var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tinypredict",
		Subsystem: "prediction",
		Name:      "cache_hits_total",
		Help:      "Number of level computations served from the prediction cache.",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tinypredict",
		Subsystem: "prediction",
		Name:      "cache_misses_total",
		Help:      "Number of level computations that had to regenerate the baseline.",
	})

	regenDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tinypredict",
		Subsystem: "prediction",
		Name:      "regeneration_seconds",
		Help:      "Time spent regenerating a timegroup baseline.",
		Buckets:   prometheus.DefBuckets,
	})

	levelsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tinypredict",
		Subsystem: "api",
		Name:      "levels_requests_total",
		Help:      "Predictive level requests by outcome.",
	}, []string{"outcome"})
)
