// Package telemetry provides Prometheus metrics and OpenTelemetry spans for
// registry pipeline runs.
//
// Metrics are registered on the registerer passed to NewMetrics; the dev
// server exposes them on /metrics. A nil *Metrics is valid and records
// nothing, so one-shot commands can skip metrics entirely.
//
// Spans use the global OpenTelemetry tracer provider. Configure it before
// running the pipeline to export traces; otherwise spans are no-ops.
package telemetry
