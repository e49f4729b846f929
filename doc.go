// Package authlimit gates authentication endpoints with per-endpoint
// request quotas and escalating lockouts.
//
// The package wraps an existing http.Handler with middleware that
// classifies each request, resolves a client key from proxy headers,
// checks the quota and either forwards the request or writes an HTTP
// 429 response with Retry-After and X-RateLimit-* headers. Requests
// that do not match a guarded endpoint pass through untouched.
//
// # Quick Start
//
//	handler, _ := authlimit.New(authlimit.Config{
//		EnableAuditLogging: true,
//	})
//	defer handler.Stop()
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/api/auth/sign-in/email", signIn)
//	http.ListenAndServe(":8080", handler.Middleware(mux))
//
// The decision engine lives in the ratelimit subpackage and can be used
// directly for non-HTTP call sites. OpenTelemetry metrics and traces
// are available through the instrumentation subpackage.
//
// # Trust Boundary
//
// Client keys come from forwarding headers (X-Forwarded-For and
// friends), which any client can forge. Deploy this middleware only
// behind a trusted reverse proxy that overwrites those headers.
package authlimit
