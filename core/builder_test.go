package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builderConfig(workers int) *contract.Config {
	return &contract.Config{Engine: testEngineConfig(), Workers: workers}
}

func TestEvaluateConcurrently(t *testing.T) {
	questions := make([]schema.QuestionSpec, 25)
	for i := range questions {
		questions[i] = schema.QuestionSpec{ID: fmt.Sprintf("q%02d", i)}
	}

	for _, workers := range []int{0, 1, 4, 100} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			var calls atomic.Int32
			outcomes := evaluateConcurrently(questions, workers, func(q schema.QuestionSpec) schema.QuestionOutcome {
				calls.Add(1)
				return schema.QuestionOutcome{QuestionID: q.ID}
			})

			require.Len(t, outcomes, len(questions))
			assert.Equal(t, int32(len(questions)), calls.Load())
			for i, o := range outcomes {
				assert.Equal(t, questions[i].ID, o.QuestionID, "outcomes keep question order")
			}
		})
	}

	assert.Empty(t, evaluateConcurrently(nil, 4, func(schema.QuestionSpec) schema.QuestionOutcome {
		t.Fatal("eval must not run without questions")
		return schema.QuestionOutcome{}
	}))
}

func TestResolveInterval(t *testing.T) {
	estimated := 5.0
	tests := []struct {
		name     string
		declared *float64
		quality  schema.SignalQuality
		expected *float64
	}{
		{name: "declared replaces estimate", declared: ptr(15), quality: schema.SignalQuality{MeanIntervalMinutes: &estimated}, expected: ptr(15)},
		{name: "declared without estimate", declared: ptr(5), expected: nil},
		{name: "zero declared falls back", declared: ptr(0), quality: schema.SignalQuality{MeanIntervalMinutes: &estimated}, expected: ptr(5)},
		{name: "estimate", quality: schema.SignalQuality{MeanIntervalMinutes: &estimated}, expected: ptr(5)},
		{name: "unknown", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveInterval(schema.Series{IntervalMinutes: tt.declared}, tt.quality)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEvaluationBuilderPipeline(t *testing.T) {
	series := schema.Series{SeriesID: "s1", Unit: schema.UnitMgDL, Samples: mealResponseSamples()}
	events := schema.EventSet{Events: []schema.Event{mealEvent("e1", 0)}}
	questions := []schema.QuestionSpec{{ID: "q1", Kind: schema.KindDescriptive}}

	b, err := NewEvaluationBuilder(context.Background(), builderConfig(2), nil, series, events, questions).ValidateInputs()
	require.NoError(t, err)
	b, err = b.AnalyzeSignal()
	require.NoError(t, err)
	assert.Equal(t, "s1", b.Quality().SeriesID)

	b, err = b.ComputeMetrics()
	require.NoError(t, err)
	report := b.MetricsReport()
	require.Len(t, report.Events, 1)
	assert.Equal(t, "e1", report.Events[0].EventID)
	require.NotNil(t, report.IntervalMinutes)
	assert.InDelta(t, 5.0, *report.IntervalMinutes, 1e-9)
	assert.NotEmpty(t, b.RunUUID())

	signals := b.ComputeSignals().SignalsReport()
	assert.Len(t, signals.Signals, 1)

	b, err = b.EvaluateQuestions()
	require.NoError(t, err)
	result := b.BuildResult().GetResult()
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "q1", result.Outcomes[0].QuestionID)
	assert.Equal(t, b.RunUUID(), result.RunID)
}

func TestEvaluationBuilderDeclaredIntervalSingleSample(t *testing.T) {
	series := schema.Series{SeriesID: "s1", Unit: schema.UnitMgDL, IntervalMinutes: ptr(5), Samples: gridSamples(0, 5, 120)}
	events := schema.EventSet{Events: []schema.Event{mealEvent("e1", 0)}}

	b, err := NewEvaluationBuilder(context.Background(), builderConfig(1), nil, series, events, nil).ValidateInputs()
	require.NoError(t, err)
	b, err = b.AnalyzeSignal()
	require.NoError(t, err)
	assert.Nil(t, b.Quality().MeanIntervalMinutes)

	b, err = b.ComputeMetrics()
	require.NoError(t, err)
	report := b.MetricsReport()
	assert.Nil(t, report.IntervalMinutes)
	require.Len(t, report.Events, 1)
	require.NotEmpty(t, report.Events[0].Metrics)
	for _, m := range report.Events[0].Metrics {
		assert.Nil(t, m.CoverageRatio, "metric %s", m.Name)
		assert.True(t, m.HasFlag(schema.FlagInsufficientData), "metric %s", m.Name)
	}
}

func TestEvaluationBuilderErrors(t *testing.T) {
	t.Run("empty series", func(t *testing.T) {
		_, err := NewEvaluationBuilder(context.Background(), builderConfig(1), nil, schema.Series{SeriesID: "s"}, schema.EventSet{}, nil).ValidateInputs()
		assert.ErrorContains(t, err, "has no samples")
	})

	t.Run("unordered samples", func(t *testing.T) {
		samples := gridSamples(0, 5, 100, 101, 102)
		samples[2].Timestamp = samples[0].Timestamp
		_, err := NewEvaluationBuilder(context.Background(), builderConfig(1), nil, schema.Series{SeriesID: "s", Samples: samples}, schema.EventSet{}, nil).ValidateInputs()
		assert.ErrorContains(t, err, "strictly increasing")
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		b := NewEvaluationBuilder(ctx, builderConfig(1), nil, schema.Series{Samples: mealResponseSamples()}, schema.EventSet{}, nil)
		_, err := b.AnalyzeSignal()
		assert.ErrorIs(t, err, context.Canceled)
		_, err = b.ComputeMetrics()
		assert.ErrorIs(t, err, context.Canceled)
		_, err = b.EvaluateQuestions()
		assert.ErrorIs(t, err, context.Canceled)
	})
}
