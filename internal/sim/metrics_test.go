package sim_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/mozabes/Webhawk/internal/sim"
)

func collect(t *testing.T, reader sdkmetric.Reader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func newTestMetrics(t *testing.T) (*sim.FrameMetrics, sdkmetric.Reader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	fm, err := sim.NewFrameMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return fm, reader
}

func sumValue(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "%T is not an int64 sum", data)
	require.Len(t, sum.DataPoints, 1)
	return sum.DataPoints[0].Value
}

func TestFrameMetricsRecord(t *testing.T) {
	fm, reader := newTestMetrics(t)

	fm.RecordFrame(0.016, false, 80, 0)
	fm.RecordFrame(0.1, true, 80, 60)
	fm.RecordFrame(0, false, 0, 61)

	got := collect(t, reader)
	assert.Equal(t, int64(3), sumValue(t, got["webhawk.frames"]))
	assert.Equal(t, int64(1), sumValue(t, got["webhawk.frame.clamped"]))
	assert.Equal(t, int64(160), sumValue(t, got["webhawk.render.bytes"]))

	hist, ok := got["webhawk.frame.delta"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(3), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.116, hist.DataPoints[0].Sum, 1e-12)

	gauge, ok := got["webhawk.fps"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(61), gauge.DataPoints[0].Value)
}

func TestSimulatorRecordsMetrics(t *testing.T) {
	fm, reader := newTestMetrics(t)
	s := sim.NewSimulator(sim.Options{Metrics: fm, Surface: sim.FixedSurface{W: 4, H: 3}})

	require.Equal(t, 10, s.RunHeadless(10, 0.5))

	got := collect(t, reader)
	assert.Equal(t, int64(10), sumValue(t, got["webhawk.frames"]))
	assert.Equal(t, int64(10), sumValue(t, got["webhawk.frame.clamped"]))
	assert.Equal(t, int64(10*sim.FrameUniformsSize), sumValue(t, got["webhawk.render.bytes"]))
}

func TestFrameMetricsNoop(t *testing.T) {
	fm, err := sim.NewFrameMetrics(noop.Meter{})
	require.NoError(t, err)
	assert.NotPanics(t, func() { fm.RecordFrame(0.01, true, 80, 60) })
}

func TestFrameMetricsGlobalProvider(t *testing.T) {
	fm, err := sim.NewFrameMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, fm)
}

func TestFrameMetricsNilSafe(t *testing.T) {
	var fm *sim.FrameMetrics
	assert.NotPanics(t, func() { fm.RecordFrame(0.01, false, 80, 60) })
}
