package ratelimit

import (
	"encoding/hex"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Auditor handles security event logging with PII protection. Client
// keys are usually IP addresses, so they are hashed before logging.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates a new security auditor
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// AuditEvent represents a security audit event
type AuditEvent struct {
	Type      string
	ClientKey string
	Endpoint  EndpointType
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs a security event with the client key hashed
func (a *Auditor) LogEvent(event AuditEvent) {
	if !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	a.logger.Info("security_audit",
		"event_type", event.Type,
		"client_key_hash", hashForLogging(event.ClientKey),
		"endpoint", event.Endpoint,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)
}

// LogClientBlocked logs the transition of a client into a block
func (a *Auditor) LogClientBlocked(clientKey string, endpoint EndpointType, count int) {
	a.LogEvent(AuditEvent{
		Type:      EventClientBlocked,
		ClientKey: clientKey,
		Endpoint:  endpoint,
		Details: map[string]any{
			"count": count,
		},
	})
}

// LogLimitReset logs an administrative reset of a quota window
func (a *Auditor) LogLimitReset(clientKey string, endpoint EndpointType) {
	a.LogEvent(AuditEvent{
		Type:      EventLimitReset,
		ClientKey: clientKey,
		Endpoint:  endpoint,
	})
}

// hashForLogging creates a BLAKE2b hash of sensitive data for logging
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := blake2b.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
