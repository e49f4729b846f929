package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments for the authlimit library
type Metrics struct {
	// Decision metrics
	ChecksTotal   metric.Int64Counter
	BlocksTotal   metric.Int64Counter
	BlockDuration metric.Float64Histogram

	// HTTP layer metrics
	RejectionsTotal metric.Int64Counter

	// Sweep metrics
	SweepRuns    metric.Int64Counter
	SweepEvicted metric.Int64Counter

	// Store metrics
	ActiveEntries metric.Int64ObservableGauge
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}

	var err error
	m.ChecksTotal, err = inst.limiterMeter.Int64Counter(
		"ratelimit.checks.total",
		metric.WithDescription("Total number of quota checks performed"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create checks.total counter: %w", err)
	}

	m.BlocksTotal, err = inst.limiterMeter.Int64Counter(
		"ratelimit.blocks.total",
		metric.WithDescription("Number of transitions into a block"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create blocks.total counter: %w", err)
	}

	m.BlockDuration, err = inst.limiterMeter.Float64Histogram(
		"ratelimit.block.duration",
		metric.WithDescription("Lockout duration applied on block transitions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create block.duration histogram: %w", err)
	}

	m.RejectionsTotal, err = inst.httpMeter.Int64Counter(
		"ratelimit.rejections.total",
		metric.WithDescription("Number of requests rejected with HTTP 429"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rejections.total counter: %w", err)
	}

	m.SweepRuns, err = inst.limiterMeter.Int64Counter(
		"ratelimit.sweep.runs.total",
		metric.WithDescription("Number of background sweep executions"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweep.runs.total counter: %w", err)
	}

	m.SweepEvicted, err = inst.limiterMeter.Int64Counter(
		"ratelimit.sweep.evicted.total",
		metric.WithDescription("Number of stale entries evicted by sweeps"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweep.evicted.total counter: %w", err)
	}

	m.ActiveEntries, err = inst.limiterMeter.Int64ObservableGauge(
		"ratelimit.entries.active",
		metric.WithDescription("Currently tracked quota windows"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create entries.active gauge: %w", err)
	}

	return m, nil
}

// Helper methods for common metric recording patterns

// RecordCheck records one quota check and its outcome
func (m *Metrics) RecordCheck(ctx context.Context, endpoint string, allowed bool) {
	m.ChecksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.Bool("allowed", allowed),
	))
}

// RecordBlock records a transition into a block with its lockout duration
func (m *Metrics) RecordBlock(ctx context.Context, endpoint string, durationSeconds float64) {
	attrs := metric.WithAttributes(attribute.String("endpoint", endpoint))
	m.BlocksTotal.Add(ctx, 1, attrs)
	m.BlockDuration.Record(ctx, durationSeconds, attrs)
}

// RecordRejection records an HTTP 429 response written by the middleware
func (m *Metrics) RecordRejection(ctx context.Context, endpoint string) {
	m.RejectionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
	))
}

// RecordSweep records one sweep run and the number of evicted entries
func (m *Metrics) RecordSweep(ctx context.Context, evicted int) {
	m.SweepRuns.Add(ctx, 1)
	if evicted > 0 {
		m.SweepEvicted.Add(ctx, int64(evicted))
	}
}
