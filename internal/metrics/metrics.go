package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal tracks tool invocations by tool name.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kustomcp_queries_total",
			Help: "Total number of tool invocations",
		},
		[]string{"tool"},
	)

	// QueryErrorsTotal tracks terminal query failures by classification.
	QueryErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kustomcp_query_errors_total",
			Help: "Total number of failed tool invocations",
		},
		[]string{"tool", "classification"},
	)

	// RetriesTotal tracks individual retry attempts per operation label.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kustomcp_retries_total",
			Help: "Total number of retry attempts",
		},
		[]string{"operation"},
	)

	// RetriesExhaustedTotal tracks operations that failed after the
	// last allowed attempt.
	RetriesExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kustomcp_retries_exhausted_total",
			Help: "Total number of operations that exhausted their retry budget",
		},
		[]string{"operation"},
	)

	// ResponsesTruncated tracks responses reduced to fit the size budget.
	ResponsesTruncated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kustomcp_responses_truncated_total",
			Help: "Total number of responses truncated by the response fitter",
		},
		[]string{"tool"},
	)

	// QueryLatency tracks end-to-end tool latency.
	QueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kustomcp_query_latency_seconds",
			Help:    "Tool invocation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	// RowsReturned tracks row counts after response fitting.
	RowsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kustomcp_rows_returned",
			Help:    "Rows returned per response after fitting",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)
