package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), Config{Enabled: false}, nil)
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("billing"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestInstruments(t *testing.T) {
	reader, mp := newTestMeter(t)
	meter := mp.Meter("test")
	ctx := context.Background()

	counter, err := NewCounter(meter, "test_total", "test counter", "{op}")
	require.NoError(t, err)
	counter.Add(ctx, 3, AttrOutcome.String("ok"))
	counter.Inc(ctx, AttrOutcome.String("ok"))

	gauge, err := NewGauge(meter, "test_gauge", "test gauge", "{conn}")
	require.NoError(t, err)
	gauge.Record(ctx, 7, AttrDBState.String("idle"))

	hist, err := NewHistogram(meter, HistogramOpts{
		Name:       "test_duration_seconds",
		Unit:       "s",
		Boundaries: DBDurationBuckets,
	})
	require.NoError(t, err)
	hist.RecordDuration(ctx, 20*time.Millisecond)
	hist.Record(ctx, 0.5)

	got := collectMetrics(t, reader)

	assert.Equal(t, int64(4), sumValue(t, got["test_total"], AttrOutcome.String("ok")))

	v, ok := gaugeValue(t, got["test_gauge"], AttrDBState.String("idle"))
	require.True(t, ok)
	assert.Equal(t, int64(7), v)

	h, ok := got["test_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, uint64(2), h.DataPoints[0].Count)
	assert.Equal(t, DBDurationBuckets, h.DataPoints[0].Bounds)
}
