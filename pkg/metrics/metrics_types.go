package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Store Metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// GraphQL Metrics
	GraphQLQueriesTotal  *prometheus.CounterVec
	GraphQLQueryDuration prometheus.Histogram

	// Import Metrics
	ImportRowsTotal     *prometheus.CounterVec
	ImportDuration      *prometheus.HistogramVec
	ImportFailuresTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewRegistry creates a Registry with all metrics registered against a
// fresh prometheus registry.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initHTTPMetrics()
	r.initStoreMetrics()
	r.initGraphQLMetrics()
	r.initImportMetrics()
	return r
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
