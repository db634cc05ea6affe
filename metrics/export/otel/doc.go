// Package otel publishes goToken engine counters through an OpenTelemetry
// meter supplied by the caller. Each collection reads one engine snapshot.
package otel
