package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	runsStarted   metric.Int64Counter
	runsCompleted metric.Int64Counter
	clips         metric.Int64Counter
	dropped       metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	meter := otel.Meter("podforge/pipeline")
	m := &metrics{}
	var err error
	if m.runsStarted, err = meter.Int64Counter("podforge.render.runs_started",
		metric.WithDescription("Render runs started")); err != nil {
		return nil, err
	}
	if m.runsCompleted, err = meter.Int64Counter("podforge.render.runs_completed",
		metric.WithDescription("Render runs completed successfully")); err != nil {
		return nil, err
	}
	if m.clips, err = meter.Int64Counter("podforge.render.clips_synthesized",
		metric.WithDescription("Audio clips synthesized")); err != nil {
		return nil, err
	}
	if m.dropped, err = meter.Int64Counter("podforge.render.chunks_dropped",
		metric.WithDescription("Chunks dropped after exhausting retries")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metrics) runStarted(ctx context.Context)     { m.runsStarted.Add(ctx, 1) }
func (m *metrics) runCompleted(ctx context.Context)   { m.runsCompleted.Add(ctx, 1) }
func (m *metrics) clipSynthesized(ctx context.Context) { m.clips.Add(ctx, 1) }
func (m *metrics) chunkDropped(ctx context.Context)   { m.dropped.Add(ctx, 1) }
