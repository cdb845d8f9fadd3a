package telemetry

import (
	"context"
	"testing"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordLatency(ctx, 12)
	m.EpisodeFinished(ctx, "collision")
	m.Restarted(ctx)
	m.ActionsDropped(ctx, 3)
	if m.WithSession("x") != nil {
		t.Fatalf("WithSession on nil should stay nil")
	}
}

func TestDisabledMetrics(t *testing.T) {
	m, err := New(false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := m.WithSession("abc")
	if s == m {
		t.Fatalf("WithSession should copy")
	}
	if !s.sessionID.Valid() || m.sessionID.Valid() {
		t.Fatalf("session attribute must only be set on the copy")
	}
	ctx := context.Background()
	s.RecordLatency(ctx, 4.5)
	s.EpisodeFinished(ctx, "max_steps")
	s.ActionsDropped(ctx, 0)
	s.ActionsDropped(ctx, 2)
	s.Restarted(ctx)
}
