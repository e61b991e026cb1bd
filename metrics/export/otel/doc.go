// Package otel publishes authguard engine metrics as OpenTelemetry
// observable instruments.
//
// Callers own the MeterProvider and pass a Meter to [NewExporter]. The
// exporter never mutates engine state.
package otel
