package schema

import (
	"slices"
	"time"
)

// MetricWindow records which window a metric was computed over.
type MetricWindow struct {
	RelativeTo         string  `json:"relative_to"`
	StartOffsetMinutes float64 `json:"start_offset_minutes"`
	EndOffsetMinutes   float64 `json:"end_offset_minutes"`
}

// QualitySummary carries the raw values that justify a metric.
type QualitySummary struct {
	BaselineGlucose        *float64   `json:"baseline_glucose,omitempty"`
	PeakGlucose            *float64   `json:"peak_glucose,omitempty"`
	PeakTime               *time.Time `json:"peak_time,omitempty"`
	NadirGlucose           *float64   `json:"nadir_glucose,omitempty"`
	LastValue              *float64   `json:"last_value,omitempty"`
	ReturnTowardBaselinePc *float64   `json:"return_toward_baseline_percentage"`
	WindowSamples          int        `json:"window_samples"`
	ExpectedSamples        *int       `json:"expected_samples"`
	CoveragePercentage     *float64   `json:"coverage_percentage"`
	BaselineSamples        *int       `json:"baseline_samples,omitempty"`
	RegressionSamples      *int       `json:"regression_samples,omitempty"`
}

// Metric is one windowed response value for one event.
type Metric struct {
	EventID        string         `json:"event_id"`
	Name           MetricName     `json:"metric_name"`
	Value          float64        `json:"value"`
	Unit           string         `json:"unit"`
	CoverageRatio  *float64       `json:"coverage_ratio"`
	QualityFlags   []QualityFlag  `json:"quality_flags"`
	QualitySummary QualitySummary `json:"quality_summary"`
	Window         MetricWindow   `json:"window"`
	Method         string         `json:"method"`
	Version        string         `json:"metric_version"`
}

// HasFlag reports whether the metric carries the given flag.
func (m Metric) HasFlag(flag QualityFlag) bool {
	return slices.Contains(m.QualityFlags, flag)
}

// MetricFailure records why a metric was not produced for an event.
type MetricFailure struct {
	Name   MetricName `json:"metric_name"`
	Reason string     `json:"reason"`
}

// EventMetrics holds every metric produced for one event and the ones that were not.
type EventMetrics struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	StartTime time.Time       `json:"start_time"`
	Metrics   []Metric        `json:"metrics"`
	Failures  []MetricFailure `json:"failures,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Get returns the named metric, if present.
func (em EventMetrics) Get(name MetricName) (Metric, bool) {
	for _, m := range em.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// HasCoverageFailure reports whether any metric was withheld.
func (em EventMetrics) HasCoverageFailure() bool {
	return len(em.Failures) > 0 || em.Error != ""
}
