// Package instrumentation provides OpenTelemetry (OTEL) instrumentation
// for the authlimit library.
//
// This package enables observability across the limiter through:
// - Metrics: counters, histograms and gauges for quota decisions
// - Traces: spans for classified requests passing the middleware
//
// # Quick Start
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "my-auth-gateway",
//		ServiceVersion: "1.0.0",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
// # Available Metrics
//
//   - ratelimit.checks.total{endpoint, allowed} - quota checks performed
//   - ratelimit.blocks.total{endpoint} - block transitions
//   - ratelimit.block.duration{endpoint} - lockout durations in seconds
//   - ratelimit.rejections.total{endpoint} - HTTP 429 responses written
//   - ratelimit.sweep.runs.total - background sweep executions
//   - ratelimit.sweep.evicted.total - entries evicted by sweeps
//   - ratelimit.entries.active - currently tracked quota windows (gauge)
//
// # Performance
//
// When instrumentation is not configured or disabled, no-op providers
// are used and the overhead is zero.
//
// # Privacy Considerations
//
// Client keys are usually IP addresses and may be considered PII under
// GDPR and similar regulations. Span attributes carrying the client key
// are only recorded when LogClientIPs is enabled; check
// ShouldLogClientIPs before adding them yourself.
package instrumentation
