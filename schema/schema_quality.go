package schema

import "time"

// SuspiciousChange is a jump followed by a comparable reversal.
type SuspiciousChange struct {
	Timestamp     time.Time `json:"timestamp"`
	Kind          string    `json:"kind"` // spike or drop
	Jump          float64   `json:"jump"`
	Reversal      float64   `json:"reversal"`
	PreviousValue float64   `json:"previous_value"`
	Value         float64   `json:"value"`
	NextValue     float64   `json:"next_value"`
}

// Suspicious change kinds.
const (
	ChangeSpike = "spike"
	ChangeDrop  = "drop"
)

// GapSpan is a stretch between two valid samples longer than the large-gap threshold.
type GapSpan struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Minutes float64   `json:"minutes"`
}

// FlatlineRun is a run of identical consecutive values.
type FlatlineRun struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Value  float64   `json:"value"`
	Length int       `json:"length"`
}

// SignalQuality summarizes one series independent of any event.
// Derived statistics are nil when fewer than two valid samples exist.
type SignalQuality struct {
	SeriesID     string      `json:"series_id,omitempty"`
	Unit         GlucoseUnit `json:"unit"`
	TotalSamples int         `json:"total_samples"`
	ValidSamples int         `json:"valid_samples"`

	FirstTimestamp *time.Time `json:"first_timestamp"`
	LastTimestamp  *time.Time `json:"last_timestamp"`
	SpanMinutes    *float64   `json:"span_minutes"`

	MedianIntervalMinutes *float64 `json:"median_interval_minutes"`
	MeanIntervalMinutes   *float64 `json:"mean_interval_minutes"`
	CVInterval            *float64 `json:"cv_interval"`
	IsRegular             *bool    `json:"is_regular"`

	ExpectedSamples    *int      `json:"expected_samples"`
	CoveragePercentage *float64  `json:"coverage_percentage"`
	MissingIntervals   *int      `json:"missing_intervals"`
	LargeGaps          *int      `json:"large_gaps"`
	LargeGapSpans      []GapSpan `json:"large_gap_spans,omitempty"`

	MinValue    *float64 `json:"min_value"`
	MaxValue    *float64 `json:"max_value"`
	MeanValue   *float64 `json:"mean_value"`
	ExtremeLow  *int     `json:"extreme_low"`
	ExtremeHigh *int     `json:"extreme_high"`

	SuspiciousSpikes  *int               `json:"suspicious_spikes"`
	SuspiciousDrops   *int               `json:"suspicious_drops"`
	SuspiciousChanges []SuspiciousChange `json:"suspicious_changes,omitempty"`

	FlatlineRuns       []FlatlineRun `json:"flatline_runs,omitempty"`
	ArtifactTimestamps []time.Time   `json:"artifact_timestamps,omitempty"`

	FlagTally map[QualityFlag]int `json:"flag_tally"`
	Issues    []string            `json:"issues"`
}

// Estimable reports whether derived statistics are available.
func (q SignalQuality) Estimable() bool {
	return q.MeanIntervalMinutes != nil
}
