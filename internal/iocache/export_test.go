package iocache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/cgmlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportHistory(t *testing.T) {
	t.Run("writes one file per table", func(t *testing.T) {
		store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		runID, err := store.BeginRun("uuid", "series", time.Now(), map[string]any{"command": "metrics"})
		require.NoError(t, err)
		require.NoError(t, store.RecordMetric(runID, schema.Metric{EventID: "e1", Name: schema.MetricDeltaPeak, Value: 40, Unit: "mg/dL"}))
		require.NoError(t, store.RecordVerdict(runID, schema.Verdict{QuestionID: "q1", Status: schema.StatusAnswerable}))
		require.NoError(t, store.EndRun(runID, time.Now(), 1, 1))

		out := filepath.Join(t.TempDir(), "export")
		require.NoError(t, ExportHistory(store, out))
		for _, suffix := range []string{".runs.parquet", ".metrics.parquet", ".verdicts.parquet"} {
			info, err := os.Stat(out + suffix)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		}
	})

	t.Run("requires output file", func(t *testing.T) {
		assert.ErrorContains(t, ExportHistory(&MockHistoryStore{}, ""), "--output-file")
	})

	t.Run("empty history", func(t *testing.T) {
		store := &MockHistoryStore{}
		store.On("GetStatus").Return(schema.HistoryStatus{Backend: "sqlite", Connected: true}, nil)
		assert.ErrorContains(t, ExportHistory(store, "out"), "no history data")
		store.AssertExpectations(t)
	})

	t.Run("status failure", func(t *testing.T) {
		store := &MockHistoryStore{}
		store.On("GetStatus").Return(schema.HistoryStatus{}, errors.New("boom"))
		assert.ErrorContains(t, ExportHistory(store, "out"), "boom")
	})
}
