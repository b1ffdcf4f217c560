// Package prometheus exposes goSession engine metrics as a
// prometheus.Collector.
//
// [NewExporter] reads [goSession.Engine.MetricsSnapshot] at scrape time.
// Counter names are prefixed gosession_*_total; the single histogram is
// gosession_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers mount Handler or
//     register the Exporter themselves.
//   - Mutate engine state.
package prometheus
