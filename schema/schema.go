// Package schema holds the plain data records shared by the engine, the stores and the writers.
package schema

import (
	"slices"
	"time"
)

// Sample is one CGM reading. Value is NaN only when the sample carries FlagSensorError.
type Sample struct {
	Timestamp time.Time     `json:"timestamp"`
	Value     float64       `json:"glucose_value"`
	Flags     []QualityFlag `json:"quality_flags,omitempty"`
}

// HasFlag reports whether the sample carries the given flag.
func (s Sample) HasFlag(flag QualityFlag) bool {
	return slices.Contains(s.Flags, flag)
}

// IsSensorError reports whether the sample is excluded from numeric aggregation.
func (s Sample) IsSensorError() bool {
	return s.HasFlag(FlagSensorError)
}

// Series is a canonical sample sequence with its metadata.
type Series struct {
	SeriesID        string      `json:"series_id"`
	SubjectID       string      `json:"subject_id,omitempty"`
	DeviceID        string      `json:"device_id,omitempty"`
	TimeZone        string      `json:"time_zone,omitempty"`
	Unit            GlucoseUnit `json:"unit"`
	IntervalMinutes *float64    `json:"sampling_interval_minutes,omitempty"`
	Samples         []Sample    `json:"samples"`
}

// Quantity is a value with a unit.
type Quantity struct {
	Value any    `json:"value" yaml:"value"`
	Unit  string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Event is an annotated exposure (meal, drink, activity).
type Event struct {
	ID                string              `json:"event_id"`
	Type              string              `json:"event_type"`
	Label             string              `json:"label,omitempty"`
	StartTime         time.Time           `json:"start_time"`
	EndTime           *time.Time          `json:"end_time,omitempty"`
	Components        map[string]Quantity `json:"exposure_components,omitempty"`
	AnnotationQuality float64             `json:"annotation_quality"`
	ContextTags       []string            `json:"context_tags,omitempty"`
	Source            string              `json:"source,omitempty"`
}

// EffectiveEnd returns the end time, or start plus the default duration when absent.
func (e Event) EffectiveEnd(defaultDuration time.Duration) time.Time {
	if e.EndTime != nil {
		return *e.EndTime
	}
	return e.StartTime.Add(defaultDuration)
}

// EventSet is the canonical event sequence for one subject.
type EventSet struct {
	SubjectID string  `json:"subject_id,omitempty"`
	Events    []Event `json:"events"`
}

// WindowSpec defines a window by minute offsets from an anchor.
type WindowSpec struct {
	StartOffsetMinutes float64 `json:"start_offset_minutes" yaml:"start_offset_minutes" mapstructure:"start"`
	EndOffsetMinutes   float64 `json:"end_offset_minutes" yaml:"end_offset_minutes" mapstructure:"end"`
}

// DurationMinutes returns the window length in minutes.
func (w WindowSpec) DurationMinutes() float64 {
	return w.EndOffsetMinutes - w.StartOffsetMinutes
}

// WindowResult is a window resolved against a sample sequence.
type WindowResult struct {
	Anchor        time.Time `json:"anchor_time"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	InRange       []Sample  `json:"-"`
	ExpectedCount *int      `json:"expected_count"`
	CoverageRatio *float64  `json:"coverage_ratio"`
	ArtifactCount int       `json:"artifact_count"`
}

// Values returns the glucose values of the in-range samples.
func (w WindowResult) Values() []float64 {
	values := make([]float64, len(w.InRange))
	for i, s := range w.InRange {
		values[i] = s.Value
	}
	return values
}
