package authlimit

import (
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/evarisai/authlimit/instrumentation"
	"github.com/evarisai/authlimit/ratelimit"
)

// Handler owns the limiter and renders its decisions over HTTP.
type Handler struct {
	limiter *ratelimit.Limiter
	auditor *ratelimit.Auditor
	logger  *slog.Logger
	inst    *instrumentation.Instrumentation
	tracer  trace.Tracer
}

// New creates a handler with the given configuration. Call Stop to halt
// the background sweep at shutdown.
func New(cfg Config) (*Handler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	auditor := ratelimit.NewAuditor(logger, cfg.EnableAuditLogging)

	userHook := cfg.OnBlocked
	onBlocked := func(clientKey string, endpoint ratelimit.EndpointType, count int) {
		auditor.LogClientBlocked(clientKey, endpoint, count)
		if userHook != nil {
			userHook(clientKey, endpoint, count)
		}
	}

	limiter := ratelimit.NewLimiterWithConfig(ratelimit.Config{
		Policies:      cfg.Policies,
		SweepInterval: cfg.SweepInterval,
		EntryTTL:      cfg.EntryTTL,
		DisableSweep:  cfg.DisableSweep,
		OnBlocked:     onBlocked,
		Logger:        logger,
	})

	h := &Handler{
		limiter: limiter,
		auditor: auditor,
		logger:  logger,
		inst:    cfg.Instrumentation,
	}

	if cfg.Instrumentation != nil {
		h.tracer = cfg.Instrumentation.Tracer("http")
		if err := cfg.Instrumentation.RegisterEntryCountCallback(func() int64 {
			return int64(limiter.Len())
		}); err != nil {
			limiter.Stop()
			return nil, fmt.Errorf("failed to register entry gauge: %w", err)
		}
	}

	return h, nil
}

// Middleware wraps next with quota enforcement. Requests that do not
// classify as a guarded endpoint are forwarded untouched; guarded
// requests are either forwarded or answered with HTTP 429.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint, ok := ratelimit.Classify(r.Method, r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		var span trace.Span
		if h.tracer != nil {
			ctx, span = h.tracer.Start(ctx, "ratelimit.check")
			defer span.End()
			r = r.WithContext(ctx)
		}

		clientKey := ratelimit.ResolveClientKey(r.Header)
		decision := h.limiter.Check(clientKey, endpoint)

		if h.inst != nil {
			metrics := h.inst.Metrics()
			metrics.RecordCheck(ctx, string(endpoint), decision.Allowed)
			if decision.Blocked {
				metrics.RecordBlock(ctx, string(endpoint), decision.RetryAfter.Seconds())
			}
		}
		instrumentation.AddDecisionAttributes(span, string(endpoint), decision.Allowed, decision.Remaining)
		if h.inst != nil && h.inst.ShouldLogClientIPs() {
			instrumentation.AddClientKeyAttribute(span, clientKey)
		}

		if decision.Allowed {
			instrumentation.SetSpanSuccess(span)
			next.ServeHTTP(w, r)
			return
		}

		if h.inst != nil {
			h.inst.Metrics().RecordRejection(ctx, string(endpoint))
		}
		instrumentation.SetSpanAttributes(span,
			attribute.Int(instrumentation.AttrHTTPStatusCode, http.StatusTooManyRequests),
			attribute.Int(instrumentation.AttrRetryAfterSeconds, decision.RetryAfterSeconds()),
		)
		instrumentation.SetSpanError(span, "rate limit exceeded")

		h.auditor.LogEvent(ratelimit.AuditEvent{
			Type:      ratelimit.EventRateLimitExceeded,
			ClientKey: clientKey,
			Endpoint:  endpoint,
			Details: map[string]any{
				"retry_after_s": decision.RetryAfterSeconds(),
			},
		})

		WriteRejection(w, decision)
	})
}

// Reset clears the quota window for one client and endpoint type.
// Administrative escape hatch; the reset is audited.
func (h *Handler) Reset(clientKey string, endpoint ratelimit.EndpointType) {
	h.limiter.Reset(clientKey, endpoint)
	h.auditor.LogLimitReset(clientKey, endpoint)
}

// Limiter exposes the underlying decision engine for direct checks
// outside the HTTP path.
func (h *Handler) Limiter() *ratelimit.Limiter {
	return h.limiter
}

// Stats returns a snapshot of limiter statistics.
func (h *Handler) Stats() ratelimit.Stats {
	return h.limiter.GetStats()
}

// Stop halts the background sweep. Safe to call multiple times.
func (h *Handler) Stop() {
	h.limiter.Stop()
}
