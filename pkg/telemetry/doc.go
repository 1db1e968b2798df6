// Package telemetry provides structured logging, Prometheus metrics,
// and OpenTelemetry tracing for synthesis runs.
//
// The three concerns share one Config so a single flagset can drive
// them. Logging is always on; tracing and the metrics endpoint are
// opt-in and default to off for short-lived CLI invocations.
package telemetry
