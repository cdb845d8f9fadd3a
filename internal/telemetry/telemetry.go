// Package telemetry holds the OpenTelemetry instruments recorded by the
// training bridge.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "rovergym/internal/telemetry"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	latency   metric.Float64Histogram
	episodes  metric.Int64Counter
	restarts  metric.Int64Counter
	dropped   metric.Int64Counter
	sessionID attribute.KeyValue
}

// New builds instruments on the global meter provider, or on a noop one
// when disabled.
func New(enabled bool) (*Metrics, error) {
	var meter metric.Meter
	if enabled {
		meter = otel.Meter(instrumentationName)
	} else {
		meter = noop.NewMeterProvider().Meter(instrumentationName)
	}
	return NewWithMeter(meter)
}

func NewWithMeter(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error
	if m.latency, err = meter.Float64Histogram("rovergym.bridge.action_latency",
		metric.WithDescription("time from sending a state to receiving the next action"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("latency histogram: %w", err)
	}
	if m.episodes, err = meter.Int64Counter("rovergym.env.episodes",
		metric.WithDescription("episodes finished")); err != nil {
		return nil, fmt.Errorf("episodes counter: %w", err)
	}
	if m.restarts, err = meter.Int64Counter("rovergym.bridge.restarts",
		metric.WithDescription("restart sequences triggered by a stalled trainer")); err != nil {
		return nil, fmt.Errorf("restarts counter: %w", err)
	}
	if m.dropped, err = meter.Int64Counter("rovergym.bridge.dropped_actions",
		metric.WithDescription("actions discarded by the full action buffer")); err != nil {
		return nil, fmt.Errorf("dropped counter: %w", err)
	}
	return m, nil
}

// WithSession returns a copy whose recordings carry the session id.
func (m *Metrics) WithSession(id string) *Metrics {
	if m == nil {
		return nil
	}
	cp := *m
	cp.sessionID = attribute.String("session_id", id)
	return &cp
}

func (m *Metrics) opts() []metric.RecordOption {
	if !m.sessionID.Valid() {
		return nil
	}
	return []metric.RecordOption{metric.WithAttributes(m.sessionID)}
}

func (m *Metrics) addOpts() []metric.AddOption {
	if !m.sessionID.Valid() {
		return nil
	}
	return []metric.AddOption{metric.WithAttributes(m.sessionID)}
}

func (m *Metrics) RecordLatency(ctx context.Context, ms float64) {
	if m == nil {
		return
	}
	m.latency.Record(ctx, ms, m.opts()...)
}

func (m *Metrics) EpisodeFinished(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	opts := append(m.addOpts(), metric.WithAttributes(attribute.String("reason", reason)))
	m.episodes.Add(ctx, 1, opts...)
}

func (m *Metrics) Restarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.restarts.Add(ctx, 1, m.addOpts()...)
}

func (m *Metrics) ActionsDropped(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.dropped.Add(ctx, int64(n), m.addOpts()...)
}
