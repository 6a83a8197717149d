// Package metrics provides centralized Prometheus metrics registry for the
// aanbod collector. All metrics are defined in their respective packages
// (client, pagination, sink) to maintain modularity and avoid circular
// dependencies.
//
// This package provides the scrape handler and reference for all available
// metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the collector.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry read by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the Prometheus scrape handler for Gatherer.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - aanbod_requests_total{status} (Counter): Page requests by HTTP status
//   - aanbod_request_duration_seconds (Histogram): Page request duration
//   - aanbod_errors_total{class} (Counter): Errors by class (client, server, network, decode)
//
// Run Metrics (pkg/pagination):
//   - aanbod_pages_fetched_total (Counter): Pages fetched and fully emitted
//   - aanbod_records_emitted_total (Counter): Records pushed to the sink
//   - aanbod_records_missing_fields_total{field} (Counter): Missing optional fields
//   - aanbod_runs_total{state} (Counter): Runs by terminal state (completed, failed)
//
// Sink Metrics (pkg/sink):
//   - aanbod_sink_pushes_total{kind, result} (Counter): Sink pushes by kind and outcome
//
// Example Prometheus Queries:
//
//   # Failed runs in the last day
//   increase(aanbod_runs_total{state="failed"}[1d])
//
//   # Share of listings without a landlord
//   rate(aanbod_records_missing_fields_total{field="verhuurder"}[1h]) /
//   rate(aanbod_records_emitted_total[1h])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(aanbod_request_duration_seconds_bucket[5m]))
