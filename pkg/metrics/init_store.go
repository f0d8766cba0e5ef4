package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStoreMetrics() {
	r.StoreOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "semgraph_store_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "status"},
	)

	r.StoreOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semgraph_store_operation_duration_seconds",
			Help:    "Store operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
}

func (r *Registry) initGraphQLMetrics() {
	r.GraphQLQueriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "semgraph_graphql_queries_total",
			Help: "Total number of GraphQL queries executed",
		},
		[]string{"status"},
	)

	r.GraphQLQueryDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "semgraph_graphql_query_duration_seconds",
			Help:    "GraphQL query execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
}

func (r *Registry) initImportMetrics() {
	r.ImportRowsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "semgraph_import_rows_total",
			Help: "Total number of rows bulk-imported",
		},
		[]string{"table"},
	)

	r.ImportDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semgraph_import_duration_seconds",
			Help:    "Bulk import latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"table"},
	)

	r.ImportFailuresTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "semgraph_import_failures_total",
			Help: "Total number of failed bulk imports",
		},
		[]string{"table"},
	)
}
