// Package prometheus exposes authguard engine metrics through a
// client_golang collector.
//
// [NewExporter] registers the collector on a private registry and serves it
// from [Exporter.Handler]. Counters are named authguard_*_total; the single
// histogram is authguard_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register anything in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
