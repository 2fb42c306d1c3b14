package core

import (
	"math"
	"testing"

	"github.com/huangsam/cgmlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSignalCleanSeries(t *testing.T) {
	q, err := AnalyzeSignal(mealResponseSamples(), testEngineConfig())
	require.NoError(t, err)

	assert.Equal(t, 44, q.TotalSamples)
	assert.Equal(t, 44, q.ValidSamples)
	require.True(t, q.Estimable())
	assert.InDelta(t, 5.0, *q.MeanIntervalMinutes, 1e-9)
	assert.InDelta(t, 5.0, *q.MedianIntervalMinutes, 1e-9)
	assert.InDelta(t, 0.0, *q.CVInterval, 1e-9)
	assert.True(t, *q.IsRegular)
	assert.InDelta(t, 215.0, *q.SpanMinutes, 1e-9)
	assert.Equal(t, 44, *q.ExpectedSamples)
	assert.InDelta(t, 100.0, *q.CoveragePercentage, 1e-9)
	assert.Equal(t, 0, *q.MissingIntervals)
	assert.Equal(t, 0, *q.LargeGaps)
	assert.InDelta(t, 95.0, *q.MinValue, 1e-9)
	assert.InDelta(t, 170.0, *q.MaxValue, 1e-9)
	assert.Equal(t, 0, *q.SuspiciousSpikes)
	assert.Equal(t, 0, *q.SuspiciousDrops)
	assert.Empty(t, q.FlatlineRuns)
	assert.Empty(t, q.Issues)
}

func TestAnalyzeSignalFlatlines(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		wantRuns  int
		wantMarks int
	}{
		{name: "three identical values", values: []float64{100, 104, 104, 104, 108}, wantRuns: 1, wantMarks: 3},
		{name: "two identical values", values: []float64{100, 104, 104, 108, 110}, wantRuns: 0, wantMarks: 0},
		{name: "run at series end", values: []float64{100, 104, 108, 108, 108, 108}, wantRuns: 1, wantMarks: 4},
		{name: "two separate runs", values: []float64{90, 90, 90, 100, 110, 110, 110}, wantRuns: 2, wantMarks: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := AnalyzeSignal(gridSamples(0, 5, tt.values...), testEngineConfig())
			require.NoError(t, err)
			assert.Len(t, q.FlatlineRuns, tt.wantRuns)
			assert.Len(t, q.ArtifactTimestamps, tt.wantMarks)
			if tt.wantRuns > 0 {
				assert.Contains(t, q.Issues[len(q.Issues)-1], "flat-line runs flagged as artifact")
			}
		})
	}
}

func TestAnalyzeSignalSuspiciousChanges(t *testing.T) {
	tests := []struct {
		name       string
		samples    []schema.Sample
		wantSpikes int
		wantDrops  int
	}{
		{
			name:       "spike with reversal",
			samples:    gridSamples(0, 5, 100, 101, 150, 102, 103, 104),
			wantSpikes: 1,
		},
		{
			name:      "drop with reversal",
			samples:   gridSamples(0, 5, 150, 151, 100, 149, 148, 147),
			wantDrops: 1,
		},
		{
			name:    "isolated jump without reversal",
			samples: gridSamples(0, 5, 100, 101, 150, 151, 152, 153),
		},
		{
			name:    "reversal too small",
			samples: gridSamples(0, 5, 100, 101, 150, 140, 135, 130),
		},
		{
			name: "reversal after a gap",
			samples: []schema.Sample{
				{Timestamp: at(0), Value: 100},
				{Timestamp: at(5), Value: 101},
				{Timestamp: at(10), Value: 150},
				{Timestamp: at(30), Value: 102},
				{Timestamp: at(35), Value: 103},
				{Timestamp: at(40), Value: 104},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := AnalyzeSignal(tt.samples, testEngineConfig())
			require.NoError(t, err)
			assert.Equal(t, tt.wantSpikes, *q.SuspiciousSpikes)
			assert.Equal(t, tt.wantDrops, *q.SuspiciousDrops)
			assert.Len(t, q.SuspiciousChanges, tt.wantSpikes+tt.wantDrops)
		})
	}
}

func TestAnalyzeSignalGapsAndSensorErrors(t *testing.T) {
	samples := []schema.Sample{
		{Timestamp: at(0), Value: 100},
		{Timestamp: at(5), Value: 102},
		{Timestamp: at(10), Value: math.NaN(), Flags: []schema.QualityFlag{schema.FlagSensorError}},
		{Timestamp: at(15), Value: 104},
		{Timestamp: at(20), Value: 105},
		{Timestamp: at(70), Value: 106},
		{Timestamp: at(75), Value: 30},
	}
	q, err := AnalyzeSignal(samples, testEngineConfig())
	require.NoError(t, err)

	assert.Equal(t, 7, q.TotalSamples)
	assert.Equal(t, 6, q.ValidSamples)
	assert.Equal(t, 1, q.FlagTally[schema.FlagSensorError])
	assert.InDelta(t, 5.0, *q.MedianIntervalMinutes, 1e-9)
	assert.Equal(t, 2, *q.MissingIntervals) // 10 and 50 minute gaps
	assert.Equal(t, 1, *q.LargeGaps)
	require.Len(t, q.LargeGapSpans, 1)
	assert.InDelta(t, 50.0, q.LargeGapSpans[0].Minutes, 1e-9)
	assert.Equal(t, 1, *q.ExtremeLow)
	assert.Equal(t, 0, *q.ExtremeHigh)
	assert.Equal(t, 16, *q.ExpectedSamples)
	assert.Contains(t, q.Issues, "1 sensor_error samples excluded from statistics")
	assert.Contains(t, q.Issues, "coverage 37.5% below 80%")
}

func TestAnalyzeSignalTooFewSamples(t *testing.T) {
	tests := []struct {
		name    string
		samples []schema.Sample
	}{
		{name: "empty", samples: nil},
		{name: "single sample", samples: gridSamples(0, 5, 100)},
		{
			name: "one valid sample",
			samples: []schema.Sample{
				{Timestamp: at(0), Value: 100},
				{Timestamp: at(5), Value: math.NaN(), Flags: []schema.QualityFlag{schema.FlagSensorError}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := AnalyzeSignal(tt.samples, testEngineConfig())
			require.NoError(t, err)
			assert.False(t, q.Estimable())
			assert.Nil(t, q.CoveragePercentage)
			assert.Nil(t, q.IsRegular)
			assert.Contains(t, q.Issues, "fewer than 2 valid samples; signal statistics unavailable")
		})
	}
}

func TestAnalyzeSignalRejectsInvalidSamples(t *testing.T) {
	_, err := AnalyzeSignal([]schema.Sample{{Timestamp: at(5)}, {Timestamp: at(5)}}, testEngineConfig())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnalyzeSignalDeterministic(t *testing.T) {
	samples := gridSamples(0, 5, 100, 104, 104, 104, 150, 101, 99)
	a, err := AnalyzeSignal(samples, testEngineConfig())
	require.NoError(t, err)
	b, err := AnalyzeSignal(samples, testEngineConfig())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEstimateInterval(t *testing.T) {
	tests := []struct {
		name    string
		samples []schema.Sample
		want    *float64
	}{
		{name: "too few", samples: gridSamples(0, 5, 100), want: nil},
		{name: "regular", samples: gridSamples(0, 15, 100, 101, 102, 103), want: ptr(15)},
		{
			name: "gap outside tolerance ignored",
			samples: []schema.Sample{
				{Timestamp: at(0), Value: 100},
				{Timestamp: at(5), Value: 101},
				{Timestamp: at(10), Value: 102},
				{Timestamp: at(60), Value: 103},
				{Timestamp: at(65), Value: 104},
			},
			want: ptr(5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateInterval(tt.samples, 0.5)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestAnnotateArtifacts(t *testing.T) {
	samples := gridSamples(0, 5, 100, 104, 104, 104, 108)
	q, err := AnalyzeSignal(samples, testEngineConfig())
	require.NoError(t, err)

	marked := AnnotateArtifacts(samples, q)
	require.Len(t, marked, len(samples))
	for i, s := range marked {
		assert.Equal(t, i >= 1 && i <= 3, s.HasFlag(schema.FlagArtifact), "sample %d", i)
		assert.Empty(t, samples[i].Flags, "input sample %d must not be modified", i)
	}
}
