package authlimit

import (
	"log/slog"
	"time"

	"github.com/evarisai/authlimit/instrumentation"
	"github.com/evarisai/authlimit/ratelimit"
)

// Config holds the middleware configuration
type Config struct {
	// Policies overrides the built-in quota table. Nil keeps the
	// defaults (login, signup, forgotPassword, resetPassword, api).
	Policies map[ratelimit.EndpointType]ratelimit.Policy

	// SweepInterval is how often stale quota windows are evicted.
	// Default: 5 minutes.
	SweepInterval time.Duration

	// EntryTTL is the idle age beyond which the sweep evicts a window.
	// Default: 10 minutes.
	EntryTTL time.Duration

	// DisableSweep skips starting the background sweep goroutine.
	// Intended for deterministic test execution.
	DisableSweep bool

	// EnableAuditLogging enables security audit logging.
	// Logs block transitions, rejections and resets (client keys hashed).
	EnableAuditLogging bool

	// OnBlocked is an optional hook invoked when a client transitions
	// into a block. Runs in addition to audit logging.
	OnBlocked ratelimit.BlockHandler

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger

	// Instrumentation enables OpenTelemetry metrics and traces.
	// Nil disables instrumentation entirely.
	Instrumentation *instrumentation.Instrumentation
}
