// Package prometheus exposes goToken engine counters to Prometheus.
//
// [Exporter] is a prometheus.Collector that reads a fresh snapshot from its
// [Source] on every scrape. Register it with any registry, or mount
// [Exporter.Handler], which serves a private registry through promhttp.
// Counters are named gotoken_*_total and the verify histogram
// gotoken_verify_latency_seconds. Nothing is registered globally.
package prometheus
