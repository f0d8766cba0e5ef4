package metrics

import (
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordStoreOperation records a store operation
func (r *Registry) RecordStoreOperation(operation, status string, duration time.Duration) {
	r.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	r.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordGraphQLQuery records a GraphQL query execution
func (r *Registry) RecordGraphQLQuery(status string, duration time.Duration) {
	r.GraphQLQueriesTotal.WithLabelValues(status).Inc()
	r.GraphQLQueryDuration.Observe(duration.Seconds())
}

// RecordImport records a completed bulk import
func (r *Registry) RecordImport(table string, rows int, duration time.Duration) {
	r.ImportRowsTotal.WithLabelValues(table).Add(float64(rows))
	r.ImportDuration.WithLabelValues(table).Observe(duration.Seconds())
}

// RecordImportFailure records a failed bulk import
func (r *Registry) RecordImportFailure(table string) {
	r.ImportFailuresTotal.WithLabelValues(table).Inc()
}
