package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicdata_queries_total",
			Help: "Total number of query attempts by outcome.",
		},
		[]string{"outcome"},
	)
	queryRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicdata_query_rejections_total",
			Help: "Total number of rejected queries by validation reason.",
		},
		[]string{"reason"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "civicdata_query_duration_seconds",
			Help:    "End-to-end query latency including validation and binding.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	queryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "civicdata_query_rows_returned",
			Help:    "Row counts of successful query results.",
			Buckets: []float64{0, 1, 10, 100, 1000, 5000, 10000},
		},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		queryRejectionsTotal,
		queryDurationSeconds,
		queryRowsReturned,
	)
}

func ObserveQuery(outcome string, rows int, elapsed time.Duration) {
	queriesTotal.WithLabelValues(outcome).Inc()
	queryDurationSeconds.Observe(elapsed.Seconds())
	if outcome == "success" && rows >= 0 {
		queryRowsReturned.Observe(float64(rows))
	}
}

func IncrementQueryRejection(reason string) {
	queryRejectionsTotal.WithLabelValues(reason).Inc()
}
