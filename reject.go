package authlimit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/evarisai/authlimit/ratelimit"
)

const (
	rejectionError   = "Too Many Requests"
	rejectionMessage = "You have made too many requests. Please try again later."

	// defaultRetryAfterSeconds backs the Retry-After header when the
	// decision carries no wait time
	defaultRetryAfterSeconds = 60
)

// RejectionBody is the JSON payload of a 429 response
type RejectionBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// Rejection is a fully rendered 429 response. Building one has no side
// effects; writing it is the caller's choice.
type Rejection struct {
	Status  int
	Body    RejectionBody
	Headers map[string]string
}

// NewRejection renders a denied decision into an HTTP 429 response.
func NewRejection(d ratelimit.Decision) Rejection {
	retryAfter := d.RetryAfterSeconds()
	headerRetryAfter := retryAfter
	if headerRetryAfter <= 0 {
		headerRetryAfter = defaultRetryAfterSeconds
	}
	return Rejection{
		Status: http.StatusTooManyRequests,
		Body: RejectionBody{
			Error:      rejectionError,
			Message:    rejectionMessage,
			RetryAfter: retryAfter,
		},
		Headers: map[string]string{
			"Retry-After":           strconv.Itoa(headerRetryAfter),
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(d.ResetAt.UnixMilli(), 10),
		},
	}
}

// WriteRejection writes the 429 response for a denied decision.
func WriteRejection(w http.ResponseWriter, d ratelimit.Decision) {
	rejection := NewRejection(d)
	for name, value := range rejection.Headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rejection.Status)
	_ = json.NewEncoder(w).Encode(rejection.Body)
}
