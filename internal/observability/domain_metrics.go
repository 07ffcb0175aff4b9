package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlbot_queries_total",
			Help: "Total number of target-database query executions by outcome.",
		},
		[]string{"status"},
	)
	queryDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlbot_query_duration_ms",
			Help:    "Target-database query latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		},
	)
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlbot_translations_total",
			Help: "Total number of prompt-to-SQL translation requests by outcome.",
		},
		[]string{"status"},
	)
	usageIncrementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlbot_column_usage_increments_total",
			Help: "Total number of column-usage counter increments recorded.",
		},
	)
	auditWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlbot_audit_write_failures_total",
			Help: "Total number of audit log writes that failed. The primary query outcome is unaffected.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		queryDurationMs,
		translationsTotal,
		usageIncrementsTotal,
		auditWriteFailuresTotal,
	)
}

func ObserveQuery(status string, elapsed time.Duration) {
	queriesTotal.WithLabelValues(status).Inc()
	queryDurationMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveTranslation(status string) {
	translationsTotal.WithLabelValues(status).Inc()
}

func AddUsageIncrements(count int) {
	if count > 0 {
		usageIncrementsTotal.Add(float64(count))
	}
}

func IncrementAuditWriteFailures() {
	auditWriteFailuresTotal.Inc()
}
