package authlimit

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evarisai/authlimit/ratelimit"
)

func TestNewRejection(t *testing.T) {
	resetAt := time.UnixMilli(1_700_000_300_000)
	rejection := NewRejection(ratelimit.Decision{
		ResetAt:    resetAt,
		RetryAfter: 5 * time.Minute,
	})

	if rejection.Status != 429 {
		t.Errorf("Status = %d, want 429", rejection.Status)
	}
	if rejection.Body.Error != "Too Many Requests" {
		t.Errorf("Body.Error = %q", rejection.Body.Error)
	}
	if rejection.Body.Message != "You have made too many requests. Please try again later." {
		t.Errorf("Body.Message = %q", rejection.Body.Message)
	}
	if rejection.Body.RetryAfter != 300 {
		t.Errorf("Body.RetryAfter = %d, want 300", rejection.Body.RetryAfter)
	}
	if rejection.Headers["Retry-After"] != "300" {
		t.Errorf("Retry-After = %q, want 300", rejection.Headers["Retry-After"])
	}
	if rejection.Headers["X-RateLimit-Remaining"] != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", rejection.Headers["X-RateLimit-Remaining"])
	}
	if rejection.Headers["X-RateLimit-Reset"] != "1700000300000" {
		t.Errorf("X-RateLimit-Reset = %q, want 1700000300000", rejection.Headers["X-RateLimit-Reset"])
	}
}

func TestNewRejection_RetryAfterCeiling(t *testing.T) {
	// Sub-second waits round up; the client must never retry early
	rejection := NewRejection(ratelimit.Decision{
		RetryAfter: 1500 * time.Millisecond,
	})

	if rejection.Body.RetryAfter != 2 {
		t.Errorf("Body.RetryAfter = %d, want 2", rejection.Body.RetryAfter)
	}
	if rejection.Headers["Retry-After"] != "2" {
		t.Errorf("Retry-After = %q, want 2", rejection.Headers["Retry-After"])
	}
}

func TestNewRejection_DefaultRetryAfter(t *testing.T) {
	// A decision with no wait time still gets a usable Retry-After
	// header, but the body omits the field
	rejection := NewRejection(ratelimit.Decision{})

	if rejection.Headers["Retry-After"] != "60" {
		t.Errorf("Retry-After = %q, want 60", rejection.Headers["Retry-After"])
	}
	if rejection.Body.RetryAfter != 0 {
		t.Errorf("Body.RetryAfter = %d, want 0", rejection.Body.RetryAfter)
	}

	raw, err := json.Marshal(rejection.Body)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(raw), "retryAfter") {
		t.Errorf("zero retryAfter should be omitted from JSON, got %s", raw)
	}
}

func TestWriteRejection(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteRejection(rr, ratelimit.Decision{
		ResetAt:    time.UnixMilli(1_700_000_060_000),
		RetryAfter: 60 * time.Second,
	})

	if rr.Code != 429 {
		t.Errorf("status = %d, want 429", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rr.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
	if got := rr.Header().Get("X-RateLimit-Reset"); got != "1700000060000" {
		t.Errorf("X-RateLimit-Reset = %q", got)
	}

	var body RejectionBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Error != "Too Many Requests" {
		t.Errorf("body.Error = %q", body.Error)
	}
	if body.RetryAfter != 60 {
		t.Errorf("body.RetryAfter = %d, want 60", body.RetryAfter)
	}
}
