package ratelimit

import "time"

// EndpointType is the logical category of a protected operation. Each type
// is governed by its own quota policy.
type EndpointType string

const (
	// EndpointLogin covers email/password sign-in attempts
	EndpointLogin EndpointType = "login"

	// EndpointSignup covers account creation
	EndpointSignup EndpointType = "signup"

	// EndpointForgotPassword covers password-reset initiation (sends email)
	EndpointForgotPassword EndpointType = "forgotPassword"

	// EndpointResetPassword covers password-reset completion
	EndpointResetPassword EndpointType = "resetPassword"

	// EndpointAPI covers generic authenticated API traffic
	EndpointAPI EndpointType = "api"
)

// Policy describes the quota for one endpoint type. Policies are immutable
// for the process lifetime.
type Policy struct {
	// MaxRequests is the number of requests allowed per window
	MaxRequests int

	// Window is the rolling time span over which requests accumulate
	Window time.Duration

	// BlockDuration is the base lockout applied when the quota is exceeded
	BlockDuration time.Duration

	// ExponentialBackoff doubles the lockout on each repeat violation
	ExponentialBackoff bool

	// MaxBlockDuration caps the backoff. Zero means BlockDuration * 8.
	// Ignored when ExponentialBackoff is false.
	MaxBlockDuration time.Duration
}

// defaultPolicies is the built-in quota table. Login gets escalating
// lockouts because it is the primary credential-stuffing target; the
// reset flows get long fixed blocks because each attempt sends email.
var defaultPolicies = map[EndpointType]Policy{
	EndpointLogin: {
		MaxRequests:        5,
		Window:             time.Minute,
		BlockDuration:      5 * time.Minute,
		ExponentialBackoff: true,
		MaxBlockDuration:   time.Hour,
	},
	EndpointSignup: {
		MaxRequests:   3,
		Window:        time.Minute,
		BlockDuration: 10 * time.Minute,
	},
	EndpointForgotPassword: {
		MaxRequests:   3,
		Window:        5 * time.Minute,
		BlockDuration: 15 * time.Minute,
	},
	EndpointResetPassword: {
		MaxRequests:   5,
		Window:        5 * time.Minute,
		BlockDuration: 5 * time.Minute,
	},
	EndpointAPI: {
		MaxRequests:   100,
		Window:        time.Minute,
		BlockDuration: time.Minute,
	},
}

// PolicyFor returns the built-in policy for the given endpoint type.
// Returns false for unrecognized types; callers treat those as
// unlimited pass-through.
func PolicyFor(endpoint EndpointType) (Policy, bool) {
	p, ok := defaultPolicies[endpoint]
	return p, ok
}

// DefaultPolicies returns a copy of the built-in policy table. The copy can
// be modified and passed to Config.Policies without affecting the defaults.
func DefaultPolicies() map[EndpointType]Policy {
	policies := make(map[EndpointType]Policy, len(defaultPolicies))
	for endpoint, p := range defaultPolicies {
		policies[endpoint] = p
	}
	return policies
}
