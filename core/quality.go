package core

import (
	"fmt"
	"math"

	"github.com/huangsam/cgmlens/core/algo"
	"github.com/huangsam/cgmlens/schema"
)

// Overall-assessment cut-offs for the series issue list.
const (
	assessCoveragePercent    = 80.0
	assessExtremeFraction    = 0.05
	assessSuspiciousFraction = 0.02
)

// intervalEstimate is the robust sampling interval of a series.
type intervalEstimate struct {
	median float64
	mean   float64
	cv     float64
}

// AnalyzeSignal scans a sample sequence once and summarizes its quality.
// It is pure: the same input always yields the same output.
func AnalyzeSignal(samples []schema.Sample, cfg schema.EngineConfig) (schema.SignalQuality, error) {
	if err := ValidateSamples(samples); err != nil {
		return schema.SignalQuality{}, err
	}

	q := schema.SignalQuality{
		Unit:         cfg.Unit,
		TotalSamples: len(samples),
		FlagTally:    tallyFlags(samples),
		Issues:       []string{},
	}
	if sensorErrors := q.FlagTally[schema.FlagSensorError]; sensorErrors > 0 {
		q.Issues = append(q.Issues, fmt.Sprintf("%d sensor_error samples excluded from statistics", sensorErrors))
	}

	valid := validSamples(samples)
	q.ValidSamples = len(valid)
	if len(valid) < 2 {
		q.Issues = append(q.Issues, "fewer than 2 valid samples; signal statistics unavailable")
		return q, nil
	}

	first, last := valid[0].Timestamp, valid[len(valid)-1].Timestamp
	span := minutesBetween(first, last)
	q.FirstTimestamp = schema.TimePtr(first)
	q.LastTimestamp = schema.TimePtr(last)
	q.SpanMinutes = schema.Float64Ptr(span)

	deltas := successiveDeltas(valid)
	est := estimateInterval(deltas, cfg.IntervalTolerance)
	q.MedianIntervalMinutes = schema.Float64Ptr(est.median)
	q.MeanIntervalMinutes = schema.Float64Ptr(est.mean)
	q.CVInterval = schema.Float64Ptr(est.cv)
	q.IsRegular = schema.BoolPtr(est.cv < cfg.RegularityCV)

	analyzeCoverage(&q, valid, deltas, est.mean, cfg)
	analyzeExtremes(&q, valid, cfg)
	analyzeSuspicious(&q, valid, est.mean, cfg)
	analyzeFlatlines(&q, valid, cfg)
	assessOverall(&q)

	return q, nil
}

// EstimateInterval returns the robust nominal sampling interval in minutes,
// or nil when fewer than two valid samples exist.
func EstimateInterval(samples []schema.Sample, tolerance float64) *float64 {
	valid := validSamples(samples)
	if len(valid) < 2 {
		return nil
	}
	est := estimateInterval(successiveDeltas(valid), tolerance)
	return schema.Float64Ptr(est.mean)
}

// AnnotateArtifacts returns a copy of samples with the artifact flag added to every
// sample the analyzer reported as part of a flat-line run.
func AnnotateArtifacts(samples []schema.Sample, q schema.SignalQuality) []schema.Sample {
	marked := make(map[int64]struct{}, len(q.ArtifactTimestamps))
	for _, ts := range q.ArtifactTimestamps {
		marked[ts.UnixNano()] = struct{}{}
	}
	out := make([]schema.Sample, len(samples))
	for i, s := range samples {
		out[i] = s
		if _, ok := marked[s.Timestamp.UnixNano()]; ok && !s.HasFlag(schema.FlagArtifact) {
			flags := make([]schema.QualityFlag, len(s.Flags), len(s.Flags)+1)
			copy(flags, s.Flags)
			out[i].Flags = append(flags, schema.FlagArtifact)
		}
	}
	return out
}

// validSamples drops sensor_error samples.
func validSamples(samples []schema.Sample) []schema.Sample {
	out := make([]schema.Sample, 0, len(samples))
	for _, s := range samples {
		if !s.IsSensorError() {
			out = append(out, s)
		}
	}
	return out
}

// successiveDeltas returns the minute gaps between consecutive samples.
func successiveDeltas(samples []schema.Sample) []float64 {
	if len(samples) < 2 {
		return nil
	}
	deltas := make([]float64, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		deltas[i-1] = minutesBetween(samples[i-1].Timestamp, samples[i].Timestamp)
	}
	return deltas
}

// estimateInterval takes the median delta, keeps deltas within the tolerance band
// around it and reports mean and coefficient of variation of the retained set.
func estimateInterval(deltas []float64, tolerance float64) intervalEstimate {
	median := algo.Median(deltas)
	band := tolerance * median
	retained := make([]float64, 0, len(deltas))
	for _, d := range deltas {
		if math.Abs(d-median) <= band {
			retained = append(retained, d)
		}
	}
	if len(retained) == 0 {
		retained = deltas
	}
	mean, std := algo.PopMeanStdDev(retained)
	cv := 0.0
	if mean > 0 {
		cv = std / mean
	}
	return intervalEstimate{median: median, mean: mean, cv: cv}
}

func analyzeCoverage(q *schema.SignalQuality, valid []schema.Sample, deltas []float64, interval float64, cfg schema.EngineConfig) {
	expected := int(math.Round(*q.SpanMinutes/interval)) + 1
	coverage := math.Min(100*float64(len(valid))/float64(expected), 100)
	q.ExpectedSamples = schema.IntPtr(expected)
	q.CoveragePercentage = schema.Float64Ptr(coverage)

	missing, large := 0, 0
	for i, d := range deltas {
		if d > cfg.MissingIntervalFactor*interval {
			missing++
		}
		if d > cfg.LargeGapMinutes {
			large++
			q.LargeGapSpans = append(q.LargeGapSpans, schema.GapSpan{
				Start:   valid[i].Timestamp,
				End:     valid[i+1].Timestamp,
				Minutes: d,
			})
		}
	}
	q.MissingIntervals = schema.IntPtr(missing)
	q.LargeGaps = schema.IntPtr(large)
}

func analyzeExtremes(q *schema.SignalQuality, valid []schema.Sample, cfg schema.EngineConfig) {
	minV, maxV, sum := math.Inf(1), math.Inf(-1), 0.0
	low, high := 0, 0
	for _, s := range valid {
		minV = math.Min(minV, s.Value)
		maxV = math.Max(maxV, s.Value)
		sum += s.Value
		if s.Value < cfg.ExtremeLow {
			low++
		}
		if s.Value > cfg.ExtremeHigh {
			high++
		}
	}
	q.MinValue = schema.Float64Ptr(minV)
	q.MaxValue = schema.Float64Ptr(maxV)
	q.MeanValue = schema.Float64Ptr(sum / float64(len(valid)))
	q.ExtremeLow = schema.IntPtr(low)
	q.ExtremeHigh = schema.IntPtr(high)
}

// analyzeSuspicious flags a jump when the next delta reverses it by a comparable
// magnitude and arrives within one sampling interval. Nothing is removed.
func analyzeSuspicious(q *schema.SignalQuality, valid []schema.Sample, interval float64, cfg schema.EngineConfig) {
	spikes, drops := 0, 0
	maxGap := cfg.MissingIntervalFactor * interval
	for i := 1; i+1 < len(valid); i++ {
		jump := valid[i].Value - valid[i-1].Value
		if math.Abs(jump) <= cfg.JumpArtifactThreshold {
			continue
		}
		next := valid[i+1].Value - valid[i].Value
		if next*jump >= 0 || math.Abs(next) < cfg.ReversalFraction*math.Abs(jump) {
			continue
		}
		if minutesBetween(valid[i].Timestamp, valid[i+1].Timestamp) > maxGap {
			continue
		}
		kind := schema.ChangeDrop
		if jump > 0 {
			kind = schema.ChangeSpike
			spikes++
		} else {
			drops++
		}
		q.SuspiciousChanges = append(q.SuspiciousChanges, schema.SuspiciousChange{
			Timestamp:     valid[i].Timestamp,
			Kind:          kind,
			Jump:          jump,
			Reversal:      next,
			PreviousValue: valid[i-1].Value,
			Value:         valid[i].Value,
			NextValue:     valid[i+1].Value,
		})
	}
	q.SuspiciousSpikes = schema.IntPtr(spikes)
	q.SuspiciousDrops = schema.IntPtr(drops)
}

// analyzeFlatlines reports runs of identical consecutive values at least FlatlineRunLength long.
func analyzeFlatlines(q *schema.SignalQuality, valid []schema.Sample, cfg schema.EngineConfig) {
	minRun := max(cfg.FlatlineRunLength, 2)
	runStart := 0
	flush := func(end int) {
		length := end - runStart
		if length < minRun {
			return
		}
		q.FlatlineRuns = append(q.FlatlineRuns, schema.FlatlineRun{
			Start:  valid[runStart].Timestamp,
			End:    valid[end-1].Timestamp,
			Value:  valid[runStart].Value,
			Length: length,
		})
		for k := runStart; k < end; k++ {
			q.ArtifactTimestamps = append(q.ArtifactTimestamps, valid[k].Timestamp)
		}
	}
	for i := 1; i < len(valid); i++ {
		if valid[i].Value != valid[runStart].Value {
			flush(i)
			runStart = i
		}
	}
	flush(len(valid))
}

func assessOverall(q *schema.SignalQuality) {
	if *q.CoveragePercentage < assessCoveragePercent {
		q.Issues = append(q.Issues, fmt.Sprintf("coverage %.1f%% below %.0f%%", *q.CoveragePercentage, assessCoveragePercent))
	}
	if !*q.IsRegular {
		q.Issues = append(q.Issues, fmt.Sprintf("irregular sampling (cv=%.3f)", *q.CVInterval))
	}
	valid := float64(q.ValidSamples)
	if extremes := *q.ExtremeLow + *q.ExtremeHigh; float64(extremes)/valid > assessExtremeFraction {
		q.Issues = append(q.Issues, fmt.Sprintf("%d values outside the plausible range", extremes))
	}
	if suspicious := *q.SuspiciousSpikes + *q.SuspiciousDrops; float64(suspicious)/valid > assessSuspiciousFraction {
		q.Issues = append(q.Issues, fmt.Sprintf("%d suspicious spike/drop candidates", suspicious))
	}
	if n := len(q.FlatlineRuns); n > 0 {
		q.Issues = append(q.Issues, fmt.Sprintf("%d flat-line runs flagged as artifact", n))
	}
}

// tallyFlags counts every flag over all samples, sensor errors included.
func tallyFlags(samples []schema.Sample) map[schema.QualityFlag]int {
	tally := make(map[schema.QualityFlag]int)
	for _, s := range samples {
		for _, f := range s.Flags {
			tally[f]++
		}
	}
	return tally
}
