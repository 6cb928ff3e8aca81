package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTracker_ReportsMeanRate(t *testing.T) {
	tr := NewTracker(time.Second, 120)
	// prime the cadence so the next report needs a full interval
	tr.Record(10 * time.Millisecond)
	_, ok := tr.MaybeReport(epoch)
	require.True(t, ok)

	for i, d := range []time.Duration{10, 20, 30} {
		tr.Record(d * time.Millisecond)
		_, ok := tr.MaybeReport(epoch.Add(time.Duration(i+1) * 300 * time.Millisecond))
		require.False(t, ok, "reported before the interval elapsed")
	}

	r, ok := tr.MaybeReport(epoch.Add(1000 * time.Millisecond))
	require.True(t, ok)
	assert.InDelta(t, 1000.0/20.0, r.FPS, 1e-9)
	assert.Equal(t, 3, r.Samples)
	assert.Equal(t, 20*time.Millisecond, r.Mean)
	assert.Equal(t, 120.0, r.Max)
}

func TestTracker_ClampsToMax(t *testing.T) {
	tests := []struct {
		name   string
		max    float64
		sample time.Duration
		want   float64
	}{
		{"below max", 120, 10 * time.Millisecond, 100},
		{"above max", 120, 2 * time.Millisecond, 120},
		{"custom max", 30, 10 * time.Millisecond, 30},
		{"zero duration", 60, 0, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(time.Second, tt.max)
			tr.Record(tt.sample)

			r, ok := tr.MaybeReport(epoch)
			require.True(t, ok)
			assert.InDelta(t, tt.want, r.FPS, 1e-9)
		})
	}
}

func TestTracker_NoSamplesNoReport(t *testing.T) {
	tr := NewTracker(time.Second, 120)

	_, ok := tr.MaybeReport(epoch)
	assert.False(t, ok)

	_, ok = tr.MaybeReport(epoch.Add(10 * time.Second))
	assert.False(t, ok)

	_, ok = tr.Last()
	assert.False(t, ok)
}

func TestTracker_ResetsAfterReport(t *testing.T) {
	tr := NewTracker(time.Second, 120)
	tr.Record(5 * time.Millisecond)
	tr.Record(15 * time.Millisecond)

	_, ok := tr.MaybeReport(epoch)
	require.True(t, ok)

	sum, count := tr.Pending()
	assert.Zero(t, sum)
	assert.Zero(t, count)

	// nothing recorded since, so the next interval emits nothing
	_, ok = tr.MaybeReport(epoch.Add(2 * time.Second))
	assert.False(t, ok)

	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, epoch, last.At)
}

func TestTracker_Defaults(t *testing.T) {
	tr := NewTracker(0, 0)
	tr.Record(time.Millisecond)

	r, ok := tr.MaybeReport(epoch)
	require.True(t, ok)
	assert.Equal(t, DefaultMaxFPS, r.FPS)
}

func TestMultiReporter_FansOut(t *testing.T) {
	var got []float64
	m := MultiReporter{
		ReporterFunc(func(r Report) { got = append(got, r.FPS) }),
		nil,
		ReporterFunc(func(r Report) { got = append(got, r.FPS*2) }),
	}

	m.Report(Report{FPS: 10})

	assert.Equal(t, []float64{10, 20}, got)
}
