package sim

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/mozabes/Webhawk/internal/sim"

// FrameMetrics records per-tick instrumentation.
type FrameMetrics struct {
	frames  metric.Int64Counter
	clamped metric.Int64Counter
	bytes   metric.Int64Counter
	delta   metric.Float64Histogram
	fps     metric.Int64ObservableGauge

	lastFPS atomic.Int64
}

// NewFrameMetrics creates the instruments on m. A nil meter uses the global
// OTel provider, which is a no-op unless an SDK has been installed.
func NewFrameMetrics(m metric.Meter) (*FrameMetrics, error) {
	if m == nil {
		m = otel.GetMeterProvider().Meter(meterName)
	}
	fm := &FrameMetrics{}

	var err error
	fm.frames, err = m.Int64Counter(
		"webhawk.frames",
		metric.WithDescription("Total frames stepped"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}

	fm.clamped, err = m.Int64Counter(
		"webhawk.frame.clamped",
		metric.WithDescription("Frames whose wall-clock delta exceeded the maximum step"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating clamped counter: %w", err)
	}

	fm.bytes, err = m.Int64Counter(
		"webhawk.render.bytes",
		metric.WithDescription("Uniform bytes uploaded to the GPU"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating render bytes counter: %w", err)
	}

	fm.delta, err = m.Float64Histogram(
		"webhawk.frame.delta",
		metric.WithDescription("Simulation step length after clamping"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frame delta histogram: %w", err)
	}

	fm.fps, err = m.Int64ObservableGauge(
		"webhawk.fps",
		metric.WithDescription("Frames counted over the last full FPS window"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fps gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(fm.fps, fm.lastFPS.Load())
			return nil
		},
		fm.fps,
	)
	if err != nil {
		return nil, fmt.Errorf("registering fps callback: %w", err)
	}

	return fm, nil
}

// RecordFrame is nil-safe so a Simulator may run without metrics.
func (fm *FrameMetrics) RecordFrame(dt float64, clamped bool, uploaded int, fps int) {
	if fm == nil {
		return
	}
	ctx := context.Background()
	fm.frames.Add(ctx, 1)
	fm.delta.Record(ctx, dt)
	if clamped {
		fm.clamped.Add(ctx, 1)
	}
	if uploaded > 0 {
		fm.bytes.Add(ctx, int64(uploaded))
	}
	fm.lastFPS.Store(int64(fps))
}
