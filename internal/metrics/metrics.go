package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Compile metrics
var (
	CompileRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gfb_compile_requests_total",
			Help: "Total number of compile requests",
		},
		[]string{"transport", "result"},
	)

	CompileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gfb_compile_duration_seconds",
			Help:    "Duration of document compilation in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport"},
	)

	FiltersCompiledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gfb_filters_compiled_total",
			Help: "Total number of labels compiled",
		},
	)

	QueriesEmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gfb_queries_emitted_total",
			Help: "Total number of filter queries emitted",
		},
	)

	SplitFiltersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gfb_split_filters_total",
			Help: "Total number of labels whose criteria exceeded the character budget",
		},
	)

	CompileErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gfb_compile_errors_total",
			Help: "Total number of compile failures by kind",
		},
		[]string{"kind"},
	)
)

// Registry and authentication metrics
var (
	RegistryOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gfb_registry_operations_total",
			Help: "Total number of filter registry operations",
		},
		[]string{"operation", "status"},
	)

	AuthenticationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gfb_authentication_attempts_total",
			Help: "Total number of API key authentication attempts",
		},
		[]string{"transport", "result"},
	)
)
