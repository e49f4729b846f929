package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownClientKey is the shared bucket for requests carrying none of the
// client-identifying headers. All such clients share one quota.
const UnknownClientKey = "unknown"

// fallbackClientKeyHeaders are consulted in order after X-Forwarded-For.
var fallbackClientKeyHeaders = []string{
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Real-IP",
}

// ResolveClientKey derives one stable client identifier from request
// headers. Precedence: the first comma-separated token of X-Forwarded-For
// (trimmed), then CF-Connecting-IP, True-Client-IP and X-Real-IP; the
// first non-empty source wins.
//
// SECURITY: header values are used verbatim, without syntax validation.
// This assumes a trusted reverse proxy sets or strips these headers
// upstream. Without such a proxy, clients can spoof their identity and
// bypass or mis-target limiting.
func ResolveClientKey(headers http.Header) string {
	if xff := headers.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if key := strings.TrimSpace(first); key != "" {
			return key
		}
	}
	for _, name := range fallbackClientKeyHeaders {
		if v := headers.Get(name); v != "" {
			return v
		}
	}
	return UnknownClientKey
}
