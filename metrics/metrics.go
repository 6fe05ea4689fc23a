// Package metrics declares the prometheus collectors of livesql Sessions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Keys for livesql metrics.
const (
	Fail = "fail"
	Ok   = "ok"

	Hit  = "hit"
	Miss = "miss"

	Commit   = "commit"
	Rollback = "rollback"
)

// Collectors of Session activity.
var (
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livesql_operations_total",
		Help: "Cumulative number of Session operations, by operation & status.",
	}, []string{"op", "status"})
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "livesql_operation_duration_seconds",
		Help:    "Duration of Session operations on the execution context, by operation.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100us to ~26s.
	}, []string{"op"})
	StatementCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livesql_statement_cache_total",
		Help: "Cumulative number of statement cache lookups, by result (hit or miss).",
	}, []string{"result"})
	StatementCacheEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livesql_statement_cache_evictions_total",
		Help: "Cumulative number of cached statements evicted and finalized.",
	})
	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livesql_transactions_total",
		Help: "Cumulative number of transactional blocks, by outcome (commit or rollback).",
	}, []string{"outcome"})
	Observers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "livesql_observers",
		Help: "Number of registered live query observers.",
	})
	ObserverEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livesql_observer_evaluations_total",
		Help: "Cumulative number of observer re-evaluations, by status.",
	}, []string{"status"})
	ObserverDeliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livesql_observer_deliveries_total",
		Help: "Cumulative number of results delivered to observer callbacks.",
	})
)
