// Package prometheus renders flow engine metrics for Prometheus scrapes.
//
// [NewPrometheusExporter] accepts an [authflow.Engine] and exposes an
// [http.Handler] that renders all engine counters and histograms in
// Prometheus text exposition format. Counter names are prefixed
// authflow_*_total; the provider round-trip histograms are
// authflow_*_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the
//     Handler.
//   - Mutate engine state.
package prometheus
