package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span attribute keys.
//
// PRIVACY NOTE: the client key is usually an IP address and may be
// Personally Identifiable Information. Only attach AttrClientKey when
// ShouldLogClientIPs() is true.
const (
	AttrEndpoint          = "ratelimit.endpoint"        // Endpoint type (login, signup, ...)
	AttrClientKey         = "ratelimit.client_key"      // Resolved client key (PII, gated)
	AttrAllowed           = "ratelimit.allowed"         // Decision outcome (boolean)
	AttrRemaining         = "ratelimit.remaining"       // Requests left in the window
	AttrRetryAfterSeconds = "ratelimit.retry_after_s"   // Seconds until retry is useful
	AttrHTTPMethod        = "http.method"               // Request method
	AttrHTTPPath          = "http.path"                 // Request path
	AttrHTTPStatusCode    = "http.status_code"          // Response status
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe)
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddDecisionAttributes adds quota decision attributes to a span (nil-safe)
func AddDecisionAttributes(span trace.Span, endpoint string, allowed bool, remaining int) {
	SetSpanAttributes(span,
		attribute.String(AttrEndpoint, endpoint),
		attribute.Bool(AttrAllowed, allowed),
		attribute.Int(AttrRemaining, remaining),
	)
}

// AddClientKeyAttribute adds the resolved client key to a span (nil-safe).
// Callers must gate this behind ShouldLogClientIPs.
func AddClientKeyAttribute(span trace.Span, clientKey string) {
	if clientKey != "" {
		SetSpanAttributes(span, attribute.String(AttrClientKey, clientKey))
	}
}
