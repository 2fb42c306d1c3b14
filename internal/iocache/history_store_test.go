package iocache

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/cgmlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryStore_NoneBackend(t *testing.T) {
	store, err := NewHistoryStore(schema.NoneBackend, "")
	require.NoError(t, err)

	runID, err := store.BeginRun("uuid", "s1", time.Now(), map[string]any{"command": "evaluate"})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), runID)

	assert.NoError(t, store.EndRun(1, time.Now(), 3, 1))
	assert.NoError(t, store.RecordMetric(1, schema.Metric{EventID: "e1"}))
	assert.NoError(t, store.RecordVerdict(1, schema.Verdict{QuestionID: "q1"}))

	runs, err := store.GetAllRuns()
	assert.NoError(t, err)
	assert.Empty(t, runs)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestHistoryStore_SQLite(t *testing.T) {
	store, err := NewHistoryStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	start := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	runID, err := store.BeginRun("run-uuid-1", "series-a", start, map[string]any{"command": "evaluate"})
	require.NoError(t, err)
	assert.Positive(t, runID)

	coverage := 0.9
	metric := schema.Metric{
		EventID:       "meal-1",
		Name:          schema.MetricDeltaPeak,
		Value:         74,
		Unit:          "mg/dL",
		CoverageRatio: &coverage,
		QualityFlags:  []schema.QualityFlag{schema.FlagLowCoverage, schema.FlagMissingData},
	}
	require.NoError(t, store.RecordMetric(runID, metric))
	require.NoError(t, store.RecordMetric(runID, schema.Metric{EventID: "meal-1", Name: schema.MetricNadir, Value: 100, Unit: "mg/dL"}))

	verdict := schema.Verdict{
		QuestionID:   "q1",
		Status:       schema.StatusPartial,
		Confidence:   0.42,
		FailedChecks: []string{"sufficient_events", "coverage"},
	}
	require.NoError(t, store.RecordVerdict(runID, verdict))

	// duplicate metric for the same run and event is rejected
	assert.Error(t, store.RecordMetric(runID, metric))

	end := start.Add(1500 * time.Millisecond)
	require.NoError(t, store.EndRun(runID, end, 12, 1))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, runID, run.RunID)
	assert.Equal(t, "run-uuid-1", run.RunUUID)
	assert.Equal(t, "series-a", run.SeriesID)
	assert.True(t, start.Equal(run.StartTime))
	require.NotNil(t, run.EndTime)
	assert.True(t, end.Equal(*run.EndTime))
	require.NotNil(t, run.RunDurationMs)
	assert.Equal(t, int32(1500), *run.RunDurationMs)
	assert.Equal(t, int32(12), run.TotalEvents)
	assert.Equal(t, int32(1), run.TotalQuestions)
	require.NotNil(t, run.ConfigParams)
	assert.JSONEq(t, `{"command":"evaluate"}`, *run.ConfigParams)

	metrics, err := store.GetAllMetrics()
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, string(schema.MetricDeltaPeak), metrics[0].MetricName)
	assert.Equal(t, "low_coverage,missing_data", metrics[0].QualityFlags)
	require.NotNil(t, metrics[0].CoverageRatio)
	assert.InDelta(t, 0.9, *metrics[0].CoverageRatio, 1e-9)
	assert.Nil(t, metrics[1].CoverageRatio)
	assert.Empty(t, metrics[1].QualityFlags)

	verdicts, err := store.GetAllVerdicts()
	require.NoError(t, err)
	require.Len(t, verdicts, 1)
	assert.Equal(t, "q1", verdicts[0].QuestionID)
	assert.Equal(t, string(schema.StatusPartial), verdicts[0].Status)
	assert.Equal(t, "sufficient_events,coverage", verdicts[0].FailedChecks)
	var decoded schema.Verdict
	require.NoError(t, json.Unmarshal([]byte(verdicts[0].Payload), &decoded))
	assert.Equal(t, verdict.QuestionID, decoded.QuestionID)
	assert.Equal(t, verdict.Status, decoded.Status)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, int64(1), status.TotalRuns)
	assert.Equal(t, runID, status.LastRunID)
	assert.Equal(t, int64(12), status.TotalEvents)
	assert.Equal(t, int64(1), status.TotalQuestions)
	assert.Equal(t, map[string]int64{runsTable: 1, metricsTable: 2, verdictsTable: 1}, status.TableSizes)
}

func TestHistoryStore_MultipleRuns(t *testing.T) {
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	first := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	var ids []int64
	for i := range 3 {
		id, err := store.BeginRun("uuid", "series", first.Add(time.Duration(i)*time.Hour), nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.Less(t, ids[0], ids[1])
	assert.Less(t, ids[1], ids[2])

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, int64(3), status.TotalRuns)
	assert.Equal(t, ids[2], status.LastRunID)
	assert.True(t, first.Equal(status.OldestRunTime))
	assert.True(t, first.Add(2*time.Hour).Equal(status.LastRunTime))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Nil(t, runs[0].EndTime, "unfinished runs have no end time")
}

func TestHistoryStore_EndUnknownRun(t *testing.T) {
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	assert.Error(t, store.EndRun(999, time.Now(), 0, 0))
}
