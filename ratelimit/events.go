package ratelimit

// Event type constants for security audit logging. Using constants keeps
// event names consistent across the codebase and prevents typos.
const (
	// EventRateLimitExceeded is logged when a check is denied while a
	// block is in force
	EventRateLimitExceeded = "rate_limit_exceeded"

	// EventClientBlocked is logged on the transition into a new block
	EventClientBlocked = "client_blocked"

	// EventLimitReset is logged when an entry is administratively reset
	EventLimitReset = "limit_reset"

	// EventSweepCompleted is logged when a sweep evicts stale entries
	EventSweepCompleted = "sweep_completed"
)
