package core

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/huangsam/cgmlens/schema"
)

// ErrInvalidInput marks a violated input contract. It aborts only the computation that saw it.
var ErrInvalidInput = errors.New("invalid input")

// invalidInput wraps ErrInvalidInput with detail.
func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ValidateSamples checks ordering and value finiteness of a canonical sample sequence.
func ValidateSamples(samples []schema.Sample) error {
	for i, s := range samples {
		if (math.IsNaN(s.Value) || math.IsInf(s.Value, 0)) && !s.IsSensorError() {
			return invalidInput("sample %d at %s has non-finite glucose value without sensor_error flag", i, s.Timestamp.Format(time.RFC3339))
		}
		if i > 0 && !s.Timestamp.After(samples[i-1].Timestamp) {
			return invalidInput("samples not strictly increasing at index %d (%s after %s)", i,
				s.Timestamp.Format(time.RFC3339), samples[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// minutesBetween returns b-a in minutes.
func minutesBetween(a, b time.Time) float64 {
	return b.Sub(a).Minutes()
}

// offset returns anchor shifted by a fractional number of minutes.
func offset(anchor time.Time, minutes float64) time.Time {
	return anchor.Add(time.Duration(minutes * float64(time.Minute)))
}

// ExtractWindow resolves [anchor+start, anchor+end] against samples.
// Samples flagged sensor_error are dropped from the range and count as missing.
// interval is the nominal sampling interval in minutes; nil yields nil expected count and coverage.
func ExtractWindow(samples []schema.Sample, anchor time.Time, spec schema.WindowSpec, interval *float64) (schema.WindowResult, error) {
	if spec.EndOffsetMinutes < spec.StartOffsetMinutes {
		return schema.WindowResult{}, invalidInput("window end offset %.1f precedes start offset %.1f", spec.EndOffsetMinutes, spec.StartOffsetMinutes)
	}
	if err := ValidateSamples(samples); err != nil {
		return schema.WindowResult{}, err
	}
	return extractWindow(samples, anchor, spec, interval), nil
}

// extractWindow is ExtractWindow without validation, for callers that validated once up front.
func extractWindow(samples []schema.Sample, anchor time.Time, spec schema.WindowSpec, interval *float64) schema.WindowResult {
	start := offset(anchor, spec.StartOffsetMinutes)
	end := offset(anchor, spec.EndOffsetMinutes)

	result := schema.WindowResult{
		Anchor:  anchor,
		Start:   start,
		End:     end,
		InRange: []schema.Sample{},
	}

	lo := firstAtOrAfter(samples, start)
	for i := lo; i < len(samples); i++ {
		s := samples[i]
		if s.Timestamp.After(end) {
			break
		}
		if s.IsSensorError() {
			continue
		}
		if s.HasFlag(schema.FlagArtifact) {
			result.ArtifactCount++
		}
		result.InRange = append(result.InRange, s)
	}

	if interval != nil && *interval > 0 {
		expected := int(math.Round(spec.DurationMinutes()/(*interval))) + 1
		coverage := math.Min(float64(len(result.InRange))/float64(expected), 1.0)
		result.ExpectedCount = &expected
		result.CoverageRatio = &coverage
	}
	return result
}

// firstAtOrAfter returns the index of the first sample at or after t.
func firstAtOrAfter(samples []schema.Sample, t time.Time) int {
	lo, hi := 0, len(samples)
	for lo < hi {
		mid := (lo + hi) / 2
		if samples[mid].Timestamp.Before(t) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
