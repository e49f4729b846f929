package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultSweepInterval is how often the background sweep runs
	DefaultSweepInterval = 5 * time.Minute

	// DefaultEntryTTL is how long an entry may stay idle before the
	// sweep evicts it
	DefaultEntryTTL = 10 * time.Minute

	// defaultWarnRate and defaultWarnBurst throttle the warning log
	// emitted on block transitions, so a violation flood cannot flood
	// the log
	defaultWarnRate  = 1
	defaultWarnBurst = 10
)

// entryState tags the lifecycle phase of a window entry. Absence from the
// map is the third state, so illegal flag combinations cannot be
// represented.
type entryState uint8

const (
	stateCounting entryState = iota
	stateBlocked
)

// windowEntry tracks one (clientKey, endpoint) quota window.
type windowEntry struct {
	state        entryState
	count        int
	violations   int // cumulative over-quota episodes, drives backoff
	firstAttempt time.Time
	lastAttempt  time.Time
	blockedUntil time.Time
}

// Decision is the outcome of a single quota check. Decisions are
// transient and never persisted.
type Decision struct {
	// Allowed reports whether the request may proceed
	Allowed bool

	// Remaining is the number of requests left in the current window.
	// Zero when denied.
	Remaining int

	// ResetAt is when the window resets (allowed) or the block lifts
	// (denied)
	ResetAt time.Time

	// RetryAfter is how long the client must wait. Zero when allowed.
	RetryAfter time.Duration

	// Blocked reports that this very check pushed the client over quota
	// and started a new block, as opposed to a denial during an ongoing
	// one.
	Blocked bool
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds, the
// granularity of the Retry-After header.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	ms := d.RetryAfter.Milliseconds()
	return int((ms + 999) / 1000)
}

// BlockHandler is invoked when a client transitions into a block. It is a
// best-effort observability hook: it runs outside the limiter's lock and
// its behavior never affects the returned Decision. Implementations must
// not call back into the Limiter.
type BlockHandler func(clientKey string, endpoint EndpointType, count int)

// Config holds limiter configuration.
type Config struct {
	// Policies overrides the built-in quota table. Nil keeps the defaults.
	Policies map[EndpointType]Policy

	// SweepInterval is how often stale entries are evicted.
	// Default: 5 minutes.
	SweepInterval time.Duration

	// EntryTTL is the idle age beyond which the sweep evicts an entry.
	// Default: 10 minutes.
	EntryTTL time.Duration

	// DisableSweep skips starting the background sweep goroutine.
	// Intended for deterministic test execution; Sweep can still be
	// called manually.
	DisableSweep bool

	// OnBlocked is the optional block-transition hook.
	OnBlocked BlockHandler

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger
}

// Limiter enforces per-endpoint quotas with escalating lockout. It owns
// the key to window-entry mapping exclusively; a single mutex makes each
// check one atomic read-modify-write, so concurrent checks on the same
// key can never undercount.
type Limiter struct {
	mu       sync.Mutex
	entries  map[string]*windowEntry
	policies map[EndpointType]Policy

	logger      *slog.Logger
	onBlocked   BlockHandler
	warnLimiter *rate.Limiter

	now func() time.Time // swapped out in tests

	sweepInterval time.Duration
	entryTTL      time.Duration
	stopSweep     chan struct{}
	stopOnce      sync.Once

	// Statistics
	totalAllowed int64
	totalDenied  int64
	totalBlocks  int64
	totalSweeps  int64
	totalEvicted int64
}

// NewLimiter creates a limiter with the built-in policy table and the
// background sweep running.
func NewLimiter(logger *slog.Logger) *Limiter {
	return NewLimiterWithConfig(Config{Logger: logger})
}

// NewLimiterWithConfig creates a limiter with custom configuration.
// Call Stop to halt the background sweep at shutdown.
func NewLimiterWithConfig(cfg Config) *Limiter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = DefaultEntryTTL
	}
	policies := cfg.Policies
	if policies == nil {
		policies = defaultPolicies
	}

	l := &Limiter{
		entries:       make(map[string]*windowEntry),
		policies:      policies,
		logger:        logger,
		onBlocked:     cfg.OnBlocked,
		warnLimiter:   rate.NewLimiter(rate.Limit(defaultWarnRate), defaultWarnBurst),
		now:           time.Now,
		sweepInterval: cfg.SweepInterval,
		entryTTL:      cfg.EntryTTL,
		stopSweep:     make(chan struct{}),
	}

	if !cfg.DisableSweep {
		go l.sweepLoop()
	}

	logger.Info("Rate limiter initialized",
		"policies", len(policies),
		"sweep_interval", cfg.SweepInterval,
		"entry_ttl", cfg.EntryTTL,
		"sweep_disabled", cfg.DisableSweep)

	return l
}

// compositeKey uniquely identifies one quota window.
func compositeKey(clientKey string, endpoint EndpointType) string {
	return clientKey + ":" + string(endpoint)
}

// Check runs one quota decision for the given client and endpoint type.
// Endpoint types without a policy are always allowed (pass-through).
// The decision is a deterministic function of the policy, the prior
// entry state and one clock read; no step performs I/O.
func (l *Limiter) Check(clientKey string, endpoint EndpointType) Decision {
	policy, ok := l.policies[endpoint]
	if !ok {
		return Decision{Allowed: true}
	}

	now := l.now()

	l.mu.Lock()
	decision, blockedCount := l.checkLocked(compositeKey(clientKey, endpoint), policy, now)
	l.mu.Unlock()

	if blockedCount > 0 {
		l.notifyBlocked(clientKey, endpoint, blockedCount)
	}
	return decision
}

// checkLocked executes the full decision sequence for one key as a single
// critical section. Returns the decision and, on a block transition, the
// request count that triggered it (zero otherwise).
// Must be called with the mutex held.
func (l *Limiter) checkLocked(key string, policy Policy, now time.Time) (Decision, int) {
	entry := l.entries[key]

	if entry != nil && entry.state == stateBlocked {
		if now.Before(entry.blockedUntil) {
			l.totalDenied++
			return Decision{
				Remaining:  0,
				ResetAt:    entry.blockedUntil,
				RetryAfter: entry.blockedUntil.Sub(now),
			}, 0
		}
		// Block expired: resume counting on a fresh window. The
		// violation tally survives so repeat offenders keep escalating.
		entry.state = stateCounting
		entry.count = 0
		entry.firstAttempt = now
		entry.blockedUntil = time.Time{}
	}

	if entry == nil || now.Sub(entry.firstAttempt) > policy.Window {
		entry = &windowEntry{
			count:        1,
			firstAttempt: now,
			lastAttempt:  now,
		}
		l.entries[key] = entry
		l.totalAllowed++
		return Decision{
			Allowed:   true,
			Remaining: policy.MaxRequests - 1,
			ResetAt:   now.Add(policy.Window),
		}, 0
	}

	entry.count++
	entry.lastAttempt = now

	if entry.count > policy.MaxRequests {
		duration := policy.BlockDuration
		if policy.ExponentialBackoff {
			entry.violations += entry.count / policy.MaxRequests
			duration = backoffDuration(policy, entry.violations)
		}
		entry.state = stateBlocked
		entry.blockedUntil = now.Add(duration)
		l.totalDenied++
		l.totalBlocks++
		return Decision{
			Remaining:  0,
			ResetAt:    entry.blockedUntil,
			RetryAfter: duration,
			Blocked:    true,
		}, entry.count
	}

	l.totalAllowed++
	return Decision{
		Allowed:   true,
		Remaining: policy.MaxRequests - entry.count,
		ResetAt:   entry.firstAttempt.Add(policy.Window),
	}, 0
}

// backoffDuration computes the escalated lockout for the given violation
// tally: BlockDuration doubled per prior violation, capped.
func backoffDuration(policy Policy, violations int) time.Duration {
	limit := policy.MaxBlockDuration
	if limit <= 0 {
		limit = policy.BlockDuration * 8
	}
	if violations < 1 {
		violations = 1
	}
	// 2^63 overflows long before this; the cap answers anyway
	if violations > 32 {
		return limit
	}
	duration := policy.BlockDuration << (violations - 1)
	if duration <= 0 || duration > limit {
		return limit
	}
	return duration
}

// notifyBlocked emits the best-effort block-transition observability
// events: a throttled warning log and the optional OnBlocked hook.
// Runs outside the mutex.
func (l *Limiter) notifyBlocked(clientKey string, endpoint EndpointType, count int) {
	if l.warnLimiter.Allow() {
		l.logger.Warn("Rate limit exceeded, client blocked",
			"client", clientKey,
			"endpoint", endpoint,
			"count", count)
	}
	if l.onBlocked != nil {
		l.onBlocked(clientKey, endpoint, count)
	}
}

// Reset unconditionally deletes the entry for the given client and
// endpoint type. No-op if absent. Administrative escape hatch.
func (l *Limiter) Reset(clientKey string, endpoint EndpointType) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, compositeKey(clientKey, endpoint))
}

// sweepLoop periodically evicts stale entries to bound memory.
func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-l.stopSweep:
			return
		}
	}
}

// Sweep evicts entries whose last attempt is older than the entry TTL
// and that are not currently blocked, plus blocked entries whose block
// expiry is itself older than the TTL. Limiting correctness never
// depends on the sweep: a stale entry re-evaluated before eviction is
// handled by the window-expiry and block-expiry checks in Check. The
// sweep exists purely to bound memory.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	cutoff := now.Add(-l.entryTTL)
	removed := 0
	for key, entry := range l.entries {
		stale := entry.state != stateBlocked && entry.lastAttempt.Before(cutoff)
		longBlocked := entry.state == stateBlocked && entry.blockedUntil.Before(cutoff)
		if stale || longBlocked {
			delete(l.entries, key)
			removed++
		}
	}
	l.totalSweeps++
	l.totalEvicted += int64(removed)
	remaining := len(l.entries)
	l.mu.Unlock()

	if removed > 0 {
		l.logger.Debug("Rate limiter sweep completed",
			"removed", removed,
			"remaining", remaining)
	}
	return removed
}

// Stop halts the background sweep goroutine. Safe to call multiple times
// concurrently.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopSweep)
		l.logger.Debug("Rate limiter stopped")
	})
}

// Len returns the current number of tracked entries. Intended for
// observable gauge callbacks.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Stats holds limiter statistics for monitoring
type Stats struct {
	CurrentEntries int   // Current number of tracked windows
	TotalAllowed   int64 // Total checks allowed
	TotalDenied    int64 // Total checks denied
	TotalBlocks    int64 // Total block transitions
	TotalSweeps    int64 // Total sweep runs
	TotalEvicted   int64 // Total entries evicted by sweeps
}

// GetStats returns a snapshot of limiter statistics for monitoring and
// alerting.
func (l *Limiter) GetStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		CurrentEntries: len(l.entries),
		TotalAllowed:   l.totalAllowed,
		TotalDenied:    l.totalDenied,
		TotalBlocks:    l.totalBlocks,
		TotalSweeps:    l.totalSweeps,
		TotalEvicted:   l.totalEvicted,
	}
}
