package ratelimit

import (
	"net/http"
	"strings"
)

// authPathRule maps a path fragment to an endpoint type. Order matters:
// the first containment match wins.
type authPathRule struct {
	fragment string
	endpoint EndpointType
}

var authPathRules = []authPathRule{
	{"sign-in/email", EndpointLogin},
	{"sign-up/email", EndpointSignup},
	{"forget-password", EndpointForgotPassword},
	{"reset-password", EndpointResetPassword},
}

// Classify maps an HTTP method and path to a protected endpoint type.
// Only POST requests are classified; everything else returns false and
// passes through unlimited. Matching is substring containment against
// the known auth sub-paths, so the classifier works regardless of the
// mount prefix (/api/auth/sign-in/email, /auth/sign-in/email, ...).
func Classify(method, path string) (EndpointType, bool) {
	if method != http.MethodPost {
		return "", false
	}
	for _, rule := range authPathRules {
		if strings.Contains(path, rule.fragment) {
			return rule.endpoint, true
		}
	}
	return "", false
}
