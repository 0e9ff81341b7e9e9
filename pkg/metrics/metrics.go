// Package metrics provides the centralized Prometheus registry reference
// for the chess.com client. All metrics are defined in pkg/client next to
// the code that drives them; this package documents them in one place.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - chesscom_requests_total{operation, status} (Counter): Requests by
//     logical operation (player, player_stats, archives, month, ...) and
//     HTTP status ("network_error" for transport failures)
//   - chesscom_request_duration_seconds{operation} (Histogram): Request
//     duration including retries and backoff
//   - chesscom_errors_total{class} (Counter): Errors by class
//     (client, server, rate_limit, network, malformed)
//
// Retry Metrics (pkg/client):
//   - chesscom_retries_total{error_class} (Counter): Retry attempts
//   - chesscom_retry_backoff_seconds{error_class} (Histogram): Backoff
//     durations actually slept
//   - chesscom_retry_exhausted_total{error_class} (Counter): Requests that
//     exhausted the retry budget
//
// Example Prometheus Queries:
//
//   # Request Error Rate
//   rate(chesscom_errors_total[5m])
//
//   # Rate-Limit Pressure
//   rate(chesscom_retries_total{error_class="rate_limit"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(chesscom_request_duration_seconds_bucket[5m]))
