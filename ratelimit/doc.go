// Package ratelimit implements the abuse-prevention decision engine that
// gates sensitive authentication endpoints by client identity.
//
// # Model
//
// Each (client key, endpoint type) pair owns one fixed quota window. A
// client that exceeds the window's budget is blocked until a future
// timestamp; policies with exponential backoff double the lockout on
// every repeat violation, up to a cap. The Limiter owns the key to
// window-entry mapping exclusively and executes every check as one
// atomic read-modify-write, so concurrent requests can never undercount
// abuse.
//
// # Memory Management
//
// Entries are created lazily and evicted by a periodic background sweep
// once idle beyond a TTL. The sweep exists purely to bound memory:
// limiting stays correct even if it never runs, because stale windows
// and expired blocks are re-evaluated on the next check. Disable the
// sweep with Config.DisableSweep for deterministic tests and drive
// Sweep manually.
//
// # Example Usage
//
//	limiter := ratelimit.NewLimiter(logger)
//	defer limiter.Stop()
//
//	if endpoint, ok := ratelimit.Classify(r.Method, r.URL.Path); ok {
//		key := ratelimit.ResolveClientKey(r.Header)
//		if d := limiter.Check(key, endpoint); !d.Allowed {
//			// reject with 429, Retry-After d.RetryAfterSeconds()
//		}
//	}
//
// # Trust Boundary
//
// ResolveClientKey trusts proxy headers verbatim. Deploy behind a
// reverse proxy that sets or strips X-Forwarded-For and friends;
// otherwise clients can spoof their identity. Requests with none of the
// headers share a single "unknown" bucket.
package ratelimit
