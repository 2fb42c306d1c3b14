// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/cgmlens/schema"
)

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetQualityStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore persists quality reports keyed by a content hash.
// Get returns sql.ErrNoRows on a miss.
type CacheStore interface {
	Get(key string) (schema.QualityCacheEntry, error)
	Put(entry schema.QualityCacheEntry) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking evaluation runs and their results.
type HistoryStore interface {
	// BeginRun creates a new run and returns its numeric ID
	BeginRun(runUUID, seriesID string, startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, totalEvents, totalQuestions int) error

	// RecordMetric stores one computed metric for the run
	RecordMetric(runID int64, metric schema.Metric) error

	// RecordVerdict stores one answerability verdict for the run
	RecordVerdict(runID int64, verdict schema.Verdict) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every recorded run, oldest first
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllMetrics returns every recorded metric
	GetAllMetrics() ([]schema.MetricRecord, error)

	// GetAllVerdicts returns every recorded verdict
	GetAllVerdicts() ([]schema.VerdictRecord, error)

	// Close closes the underlying connection
	Close() error
}
