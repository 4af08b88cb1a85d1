// Package tracing records bootstrap phases as OpenTelemetry spans. Nothing is
// exported unless Init is called, so node-processes without verbose tracing
// pay only for no-op spans.
package tracing
