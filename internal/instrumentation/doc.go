// Package instrumentation provides OpenTelemetry metrics for the planner,
// exported in Prometheus format. It records tool invocations, model
// requests, availability searches and Google API operations.
package instrumentation
