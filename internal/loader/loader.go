// Package loader reads CGM series, event annotations and question files into canonical records.
package loader

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangsam/cgmlens/schema"
)

// timeLayouts are tried in order for timestamps without an explicit offset fallback.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// readFile reads a whole input file with an actionable error.
func readFile(kind, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s file path is required", kind)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s file %q: %w", kind, path, err)
	}
	return data, nil
}

// ParseTimestamp parses an ISO-8601 timestamp. Timestamps without an offset are read in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	for i, layout := range timeLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, loc)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: expected ISO-8601 like 2024-01-15T08:30:00Z", s)
}

// loadLocation resolves an IANA zone name, falling back to UTC when empty.
func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid time_zone %q: %w", name, err)
	}
	return loc, nil
}

// NormalizeUnit maps unit spellings onto the two canonical units.
func NormalizeUnit(unit string) (schema.GlucoseUnit, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "mg/dl", "mgdl":
		return schema.UnitMgDL, nil
	case "mmol/l", "mmol", "mmoll":
		return schema.UnitMmolL, nil
	default:
		return "", fmt.Errorf("unsupported glucose unit %q: must be mg/dL or mmol/L", unit)
	}
}

// ConvertValue converts a glucose value between units.
func ConvertValue(v float64, from, to schema.GlucoseUnit) float64 {
	switch {
	case from == to:
		return v
	case from == schema.UnitMmolL && to == schema.UnitMgDL:
		return v * schema.MgDLPerMmolL
	default:
		return v / schema.MgDLPerMmolL
	}
}
