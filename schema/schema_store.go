package schema

import "time"

// RunRecord represents a row from the cgmlens_runs table.
type RunRecord struct {
	RunID          int64
	RunUUID        string
	SeriesID       string
	StartTime      time.Time
	EndTime        *time.Time
	RunDurationMs  *int32
	TotalEvents    int32
	TotalQuestions int32
	ConfigParams   *string
}

// MetricRecord represents a row from the cgmlens_metrics table.
type MetricRecord struct {
	RunID         int64
	EventID       string
	MetricName    string
	Value         float64
	Unit          string
	CoverageRatio *float64
	QualityFlags  string
	RecordedAt    time.Time
}

// VerdictRecord represents a row from the cgmlens_verdicts table.
type VerdictRecord struct {
	RunID        int64
	QuestionID   string
	Status       string
	Confidence   float64
	FailedChecks string
	Payload      string
	RecordedAt   time.Time
}

// QualityCacheEntry is one cached quality report. Key is the content hash of the
// samples and analyzer thresholds; Payload is the JSON report.
type QualityCacheEntry struct {
	Key         string
	SeriesID    string
	SampleCount int
	Payload     []byte
	Version     int
	CachedAt    int64
}

// CacheStatus holds status information about the cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	DistinctSeries  int       `json:"distinct_series"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// HistoryStatus holds status information about the evaluation history store.
type HistoryStatus struct {
	Backend        string           `json:"backend"`
	Connected      bool             `json:"connected"`
	TotalRuns      int64            `json:"total_runs"`
	LastRunID      int64            `json:"last_run_id"`
	LastRunTime    time.Time        `json:"last_run_time"`
	OldestRunTime  time.Time        `json:"oldest_run_time"`
	TotalEvents    int64            `json:"total_events"`
	TotalQuestions int64            `json:"total_questions"`
	TableSizes     map[string]int64 `json:"table_sizes"`
}
