package loader

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/huangsam/cgmlens/schema"
)

// rawSample mirrors one sample of the series JSON document.
type rawSample struct {
	Timestamp    string   `json:"timestamp"`
	GlucoseValue *float64 `json:"glucose_value"`
	QualityFlags []string `json:"quality_flags"`
}

// rawSeries mirrors the series JSON document.
type rawSeries struct {
	SeriesID        string      `json:"series_id"`
	SubjectID       string      `json:"subject_id"`
	DeviceID        string      `json:"device_id"`
	TimeZone        string      `json:"time_zone"`
	Unit            string      `json:"unit"`
	IntervalMinutes *float64    `json:"sampling_interval_minutes"`
	Samples         []rawSample `json:"samples"`
}

// LoadSeries reads a series JSON file and converts its values to the target unit.
func LoadSeries(path string, target schema.GlucoseUnit) (schema.Series, error) {
	data, err := readFile("series", path)
	if err != nil {
		return schema.Series{}, err
	}
	series, err := ParseSeries(data, target)
	if err != nil {
		return schema.Series{}, fmt.Errorf("series file %q: %w", path, err)
	}
	return series, nil
}

// ParseSeries decodes series JSON into a canonical, time-ordered sample sequence.
// A null glucose value becomes NaN flagged sensor_error. Duplicate timestamps are rejected.
func ParseSeries(data []byte, target schema.GlucoseUnit) (schema.Series, error) {
	var raw rawSeries
	if err := json.Unmarshal(data, &raw); err != nil {
		return schema.Series{}, fmt.Errorf("invalid series JSON: %w", err)
	}
	unit, err := NormalizeUnit(raw.Unit)
	if err != nil {
		return schema.Series{}, err
	}
	if target == "" {
		target = unit
	}
	loc, err := loadLocation(raw.TimeZone)
	if err != nil {
		return schema.Series{}, err
	}

	samples := make([]schema.Sample, 0, len(raw.Samples))
	for i, rs := range raw.Samples {
		ts, err := ParseTimestamp(rs.Timestamp, loc)
		if err != nil {
			return schema.Series{}, fmt.Errorf("sample %d: %w", i, err)
		}
		flags := make([]schema.QualityFlag, 0, len(rs.QualityFlags))
		for _, f := range rs.QualityFlags {
			flags = append(flags, schema.QualityFlag(f))
		}
		value := math.NaN()
		if rs.GlucoseValue != nil {
			value = ConvertValue(*rs.GlucoseValue, unit, target)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			flags = append(flags, schema.FlagSensorError)
		}
		samples = append(samples, schema.Sample{Timestamp: ts, Value: value, Flags: schema.SortedFlags(flags)})
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
	dupes := 0
	for i := 1; i < len(samples); i++ {
		if samples[i].Timestamp.Equal(samples[i-1].Timestamp) {
			dupes++
		}
	}
	if dupes > 0 {
		return schema.Series{}, fmt.Errorf("detected %d duplicate timestamps. Remove or merge duplicate readings before analysis", dupes)
	}

	seriesID := raw.SeriesID
	if seriesID == "" {
		seriesID = raw.SubjectID
	}
	return schema.Series{
		SeriesID:        seriesID,
		SubjectID:       raw.SubjectID,
		DeviceID:        raw.DeviceID,
		TimeZone:        raw.TimeZone,
		Unit:            target,
		IntervalMinutes: raw.IntervalMinutes,
		Samples:         samples,
	}, nil
}
