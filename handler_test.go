package authlimit

import (
	"bytes"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/evarisai/authlimit/instrumentation"
	"github.com/evarisai/authlimit/internal/testutil"
	"github.com/evarisai/authlimit/ratelimit"
)

func newTestHandler(t *testing.T, cfg Config) *Handler {
	t.Helper()
	cfg.DisableSweep = true
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	}
	h, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(h.Stop)
	return h
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandler_AllowsWithinQuota(t *testing.T) {
	h := newTestHandler(t, Config{})
	mw := h.Middleware(okHandler())

	for i := 0; i < 5; i++ {
		rr := testutil.NewHTTPRequest("POST", "/api/auth/sign-in/email").
			WithHeader("X-Forwarded-For", "203.0.113.7").
			Do(mw)
		testutil.AssertEqual(t, rr.Code, http.StatusOK)
	}
}

func TestHandler_RejectsOverQuota(t *testing.T) {
	h := newTestHandler(t, Config{})
	mw := h.Middleware(okHandler())

	for i := 0; i < 5; i++ {
		testutil.NewHTTPRequest("POST", "/api/auth/sign-in/email").
			WithHeader("X-Forwarded-For", "203.0.113.7").
			Do(mw)
	}

	rr := testutil.NewHTTPRequest("POST", "/api/auth/sign-in/email").
		WithHeader("X-Forwarded-For", "203.0.113.7").
		Do(mw)

	testutil.AssertEqual(t, rr.Code, http.StatusTooManyRequests)
	testutil.AssertEqual(t, rr.Header().Get("X-RateLimit-Remaining"), "0")
	testutil.AssertEqual(t, rr.Header().Get("Retry-After"), "300")
	testutil.AssertTrue(t, rr.Header().Get("X-RateLimit-Reset") != "", "reset header present")
	testutil.AssertTrue(t, bytes.Contains(rr.Body.Bytes(), []byte("Too Many Requests")), "body names the error")
}

func TestHandler_UnguardedRequestsPassThrough(t *testing.T) {
	h := newTestHandler(t, Config{})
	mw := h.Middleware(okHandler())

	tests := []struct {
		name   string
		method string
		url    string
	}{
		{"GET to guarded path", "GET", "/api/auth/sign-in/email"},
		{"unrelated POST", "POST", "/api/widgets"},
		{"health check", "GET", "/healthz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Repeat past any quota; none of these must ever be limited
			for i := 0; i < 20; i++ {
				rr := testutil.NewHTTPRequest(tt.method, tt.url).Do(mw)
				testutil.AssertEqual(t, rr.Code, http.StatusOK)
			}
		})
	}

	testutil.AssertEqual(t, h.Limiter().Len(), 0)
}

func TestHandler_ClientIsolation(t *testing.T) {
	h := newTestHandler(t, Config{})
	mw := h.Middleware(okHandler())

	for i := 0; i < 6; i++ {
		testutil.NewHTTPRequest("POST", "/api/auth/sign-in/email").
			WithHeader("X-Forwarded-For", "203.0.113.7").
			Do(mw)
	}

	// A different client is unaffected by the first client's block
	rr := testutil.NewHTTPRequest("POST", "/api/auth/sign-in/email").
		WithHeader("X-Forwarded-For", "198.51.100.9").
		Do(mw)
	testutil.AssertEqual(t, rr.Code, http.StatusOK)
}

func TestHandler_MissingHeadersShareUnknownBucket(t *testing.T) {
	h := newTestHandler(t, Config{})
	mw := h.Middleware(okHandler())

	// All keyless clients share one quota window
	for i := 0; i < 5; i++ {
		rr := testutil.NewHTTPRequest("POST", "/api/auth/sign-in/email").Do(mw)
		testutil.AssertEqual(t, rr.Code, http.StatusOK)
	}
	rr := testutil.NewHTTPRequest("POST", "/api/auth/sign-in/email").Do(mw)
	testutil.AssertEqual(t, rr.Code, http.StatusTooManyRequests)
}

func TestHandler_OnBlockedHook(t *testing.T) {
	var mu sync.Mutex
	var gotKey string
	var gotEndpoint ratelimit.EndpointType
	var gotCount, calls int

	h := newTestHandler(t, Config{
		OnBlocked: func(clientKey string, endpoint ratelimit.EndpointType, count int) {
			mu.Lock()
			defer mu.Unlock()
			gotKey, gotEndpoint, gotCount = clientKey, endpoint, count
			calls++
		},
	})
	mw := h.Middleware(okHandler())

	for i := 0; i < 7; i++ {
		testutil.NewHTTPRequest("POST", "/api/auth/sign-in/email").
			WithHeader("X-Forwarded-For", "203.0.113.7").
			Do(mw)
	}

	mu.Lock()
	defer mu.Unlock()
	testutil.AssertEqual(t, calls, 1)
	testutil.AssertEqual(t, gotKey, "203.0.113.7")
	testutil.AssertEqual(t, gotEndpoint, ratelimit.EndpointLogin)
	testutil.AssertEqual(t, gotCount, 6)
}

func TestHandler_AuditLogging(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHandler(t, Config{
		EnableAuditLogging: true,
		Logger:             slog.New(slog.NewTextHandler(&buf, nil)),
	})
	mw := h.Middleware(okHandler())

	for i := 0; i < 6; i++ {
		testutil.NewHTTPRequest("POST", "/api/auth/sign-in/email").
			WithHeader("X-Forwarded-For", "203.0.113.7").
			Do(mw)
	}

	out := buf.String()
	testutil.AssertTrue(t, bytes.Contains([]byte(out), []byte(ratelimit.EventClientBlocked)), "block audited")
	testutil.AssertTrue(t, bytes.Contains([]byte(out), []byte(ratelimit.EventRateLimitExceeded)), "rejection audited")
	testutil.AssertFalse(t, bytes.Contains([]byte(out), []byte("203.0.113.7")), "raw client key never logged")
}

func TestHandler_Reset(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHandler(t, Config{
		EnableAuditLogging: true,
		Logger:             slog.New(slog.NewTextHandler(&buf, nil)),
	})
	mw := h.Middleware(okHandler())

	for i := 0; i < 6; i++ {
		testutil.NewHTTPRequest("POST", "/api/auth/sign-in/email").
			WithHeader("X-Forwarded-For", "203.0.113.7").
			Do(mw)
	}

	h.Reset("203.0.113.7", ratelimit.EndpointLogin)

	rr := testutil.NewHTTPRequest("POST", "/api/auth/sign-in/email").
		WithHeader("X-Forwarded-For", "203.0.113.7").
		Do(mw)
	testutil.AssertEqual(t, rr.Code, http.StatusOK)
	testutil.AssertTrue(t, bytes.Contains(buf.Bytes(), []byte(ratelimit.EventLimitReset)), "reset audited")
}

func TestHandler_WithInstrumentation(t *testing.T) {
	inst, err := instrumentation.New(instrumentation.Config{
		Enabled:     true,
		ServiceName: "handler-test",
	})
	if err != nil {
		t.Fatalf("instrumentation.New() error = %v", err)
	}

	h := newTestHandler(t, Config{Instrumentation: inst})
	mw := h.Middleware(okHandler())

	// Exercise allow, block transition and ongoing denial paths with
	// metrics and spans active
	for i := 0; i < 8; i++ {
		testutil.NewHTTPRequest("POST", "/api/auth/sign-in/email").
			WithHeader("X-Forwarded-For", "203.0.113.7").
			Do(mw)
	}

	stats := h.Stats()
	testutil.AssertEqual(t, stats.TotalAllowed, int64(5))
	testutil.AssertEqual(t, stats.TotalDenied, int64(3))
	testutil.AssertEqual(t, stats.TotalBlocks, int64(1))
}

func TestHandler_CustomPolicies(t *testing.T) {
	h := newTestHandler(t, Config{
		Policies: map[ratelimit.EndpointType]ratelimit.Policy{
			ratelimit.EndpointLogin: {
				MaxRequests:   1,
				Window:        ratelimit.DefaultPolicies()[ratelimit.EndpointLogin].Window,
				BlockDuration: ratelimit.DefaultPolicies()[ratelimit.EndpointLogin].BlockDuration,
			},
		},
	})
	mw := h.Middleware(okHandler())

	rr := testutil.NewHTTPRequest("POST", "/api/auth/sign-in/email").
		WithHeader("X-Forwarded-For", "203.0.113.7").
		Do(mw)
	testutil.AssertEqual(t, rr.Code, http.StatusOK)

	rr = testutil.NewHTTPRequest("POST", "/api/auth/sign-in/email").
		WithHeader("X-Forwarded-For", "203.0.113.7").
		Do(mw)
	testutil.AssertEqual(t, rr.Code, http.StatusTooManyRequests)

	// signup has no policy in the custom table: pass-through
	for i := 0; i < 10; i++ {
		rr = testutil.NewHTTPRequest("POST", "/api/auth/sign-up/email").
			WithHeader("X-Forwarded-For", "203.0.113.7").
			Do(mw)
		testutil.AssertEqual(t, rr.Code, http.StatusOK)
	}
}

func TestHandler_StopIdempotent(t *testing.T) {
	h := newTestHandler(t, Config{})
	h.Stop()
	h.Stop()
}
