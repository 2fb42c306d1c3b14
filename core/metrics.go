package core

import (
	"math"

	"github.com/huangsam/cgmlens/core/algo"
	"github.com/huangsam/cgmlens/schema"
)

// MetricVersion is stamped on every metric record.
const MetricVersion = "1.0.0"

// Calculation method labels.
const (
	methodMean          = "mean_of_valid_samples"
	methodDeltaPeak     = "max_response_minus_baseline"
	methodIAUC          = "trapezoid_clamped_at_baseline"
	methodTimeToPeak    = "earliest_peak_offset"
	methodRecoverySlope = "least_squares_peak_to_window_end"
	methodNadir         = "min_response"
)

// Absence reasons recorded as metric failures.
const (
	reasonEmptyBaseline  = "baseline window has no valid samples"
	reasonEmptyResponse  = "response window has no valid samples"
	reasonShortResponse  = "response window has fewer than 2 valid samples"
	reasonShortRecovery  = "fewer than 2 samples from peak to window end"
	reasonNoBaselineBase = "baseline unavailable"
)

// metricInputs are the resolved windows shared by every calculator for one event.
type metricInputs struct {
	event    schema.Event
	baseline schema.WindowResult
	response schema.WindowResult
	cfg      schema.EngineConfig
}

// calculator computes one metric, returning ok=false and a reason when the metric is absent.
type calculator struct {
	name schema.MetricName
	fn   func(in metricInputs) (schema.Metric, string, bool)
}

// calculators lists every metric in emission order.
var calculators = []calculator{
	{schema.MetricBaseline, func(in metricInputs) (schema.Metric, string, bool) {
		return BaselineGlucose(in.event, in.baseline, in.cfg)
	}},
	{schema.MetricDeltaPeak, func(in metricInputs) (schema.Metric, string, bool) {
		return DeltaPeak(in.event, in.baseline, in.response, in.cfg)
	}},
	{schema.MetricIAUC, func(in metricInputs) (schema.Metric, string, bool) {
		return IncrementalAUC(in.event, in.baseline, in.response, in.cfg)
	}},
	{schema.MetricTimeToPeak, func(in metricInputs) (schema.Metric, string, bool) {
		return TimeToPeak(in.event, in.baseline, in.response, in.cfg)
	}},
	{schema.MetricRecoverySlope, func(in metricInputs) (schema.Metric, string, bool) {
		return RecoverySlope(in.event, in.baseline, in.response, in.cfg)
	}},
	{schema.MetricNadir, func(in metricInputs) (schema.Metric, string, bool) {
		return NadirGlucose(in.event, in.response, in.cfg)
	}},
}

// ComputeEventMetrics resolves the baseline and response windows for one event and runs
// every calculator. Absent metrics are recorded as failures, never as zero values.
func ComputeEventMetrics(samples []schema.Sample, event schema.Event, interval *float64, cfg schema.EngineConfig) (schema.EventMetrics, error) {
	if err := validateEngineWindows(cfg); err != nil {
		return schema.EventMetrics{}, err
	}
	if err := ValidateSamples(samples); err != nil {
		return schema.EventMetrics{}, err
	}
	if err := validateEvent(event); err != nil {
		return schema.EventMetrics{}, err
	}
	return computeEventMetrics(samples, event, interval, cfg), nil
}

// ComputeAllMetrics runs ComputeEventMetrics for every event. An invalid event is recorded
// on its own result and does not stop the others; invalid samples or windows abort the call.
func ComputeAllMetrics(samples []schema.Sample, events []schema.Event, interval *float64, cfg schema.EngineConfig) ([]schema.EventMetrics, error) {
	if err := validateEngineWindows(cfg); err != nil {
		return nil, err
	}
	if err := ValidateSamples(samples); err != nil {
		return nil, err
	}
	results := make([]schema.EventMetrics, 0, len(events))
	for _, ev := range events {
		if err := validateEvent(ev); err != nil {
			results = append(results, schema.EventMetrics{
				EventID:   ev.ID,
				EventType: ev.Type,
				StartTime: ev.StartTime,
				Metrics:   []schema.Metric{},
				Error:     err.Error(),
			})
			continue
		}
		results = append(results, computeEventMetrics(samples, ev, interval, cfg))
	}
	return results, nil
}

func computeEventMetrics(samples []schema.Sample, event schema.Event, interval *float64, cfg schema.EngineConfig) schema.EventMetrics {
	in := metricInputs{
		event:    event,
		baseline: extractWindow(samples, event.StartTime, cfg.BaselineWindow, interval),
		response: extractWindow(samples, event.StartTime, cfg.ResponseWindow, interval),
		cfg:      cfg,
	}
	result := schema.EventMetrics{
		EventID:   event.ID,
		EventType: event.Type,
		StartTime: event.StartTime,
		Metrics:   []schema.Metric{},
	}
	for _, c := range calculators {
		m, reason, ok := c.fn(in)
		if !ok {
			result.Failures = append(result.Failures, schema.MetricFailure{Name: c.name, Reason: reason})
			continue
		}
		result.Metrics = append(result.Metrics, m)
	}
	return result
}

func validateEngineWindows(cfg schema.EngineConfig) error {
	if cfg.BaselineWindow.EndOffsetMinutes < cfg.BaselineWindow.StartOffsetMinutes {
		return invalidInput("baseline window end %.1f precedes start %.1f", cfg.BaselineWindow.EndOffsetMinutes, cfg.BaselineWindow.StartOffsetMinutes)
	}
	if cfg.ResponseWindow.EndOffsetMinutes < cfg.ResponseWindow.StartOffsetMinutes {
		return invalidInput("response window end %.1f precedes start %.1f", cfg.ResponseWindow.EndOffsetMinutes, cfg.ResponseWindow.StartOffsetMinutes)
	}
	return nil
}

func validateEvent(ev schema.Event) error {
	if ev.ID == "" {
		return invalidInput("event has no id")
	}
	if ev.StartTime.IsZero() {
		return invalidInput("event %s has no start time", ev.ID)
	}
	if ev.EndTime != nil && ev.EndTime.Before(ev.StartTime) {
		return invalidInput("event %s ends before it starts", ev.ID)
	}
	if ev.AnnotationQuality < 0 || ev.AnnotationQuality > 1 || math.IsNaN(ev.AnnotationQuality) {
		return invalidInput("event %s annotation quality %.2f outside [0,1]", ev.ID, ev.AnnotationQuality)
	}
	return nil
}

// BaselineGlucose is the mean of valid samples in the baseline window.
func BaselineGlucose(event schema.Event, baseline schema.WindowResult, cfg schema.EngineConfig) (schema.Metric, string, bool) {
	value, ok := baselineValue(baseline)
	if !ok {
		return schema.Metric{}, reasonEmptyBaseline, false
	}
	summary := windowSummary(baseline)
	summary.BaselineGlucose = schema.Float64Ptr(value)
	return newMetric(event, schema.MetricBaseline, value, string(cfg.Unit), baseline.CoverageRatio,
		coverageFlags(baseline, cfg), summary, cfg.BaselineWindow, methodMean), "", true
}

// DeltaPeak is the response maximum minus baseline. Ties resolve to the earliest peak.
func DeltaPeak(event schema.Event, baseline, response schema.WindowResult, cfg schema.EngineConfig) (schema.Metric, string, bool) {
	if len(response.InRange) == 0 {
		return schema.Metric{}, reasonEmptyResponse, false
	}
	base, ok := baselineValue(baseline)
	if !ok {
		return schema.Metric{}, reasonNoBaselineBase, false
	}
	peak := response.InRange[earliestMax(response.InRange)]
	summary := responseSummary(baseline, response, base)
	return newMetric(event, schema.MetricDeltaPeak, peak.Value-base, string(cfg.Unit), combinedCoverage(baseline, response),
		combinedFlags(baseline, response, cfg), summary, cfg.ResponseWindow, methodDeltaPeak), "", true
}

// IncrementalAUC integrates the response above baseline with the trapezoid rule.
// Segments below baseline contribute zero, so the result is never negative.
func IncrementalAUC(event schema.Event, baseline, response schema.WindowResult, cfg schema.EngineConfig) (schema.Metric, string, bool) {
	if len(response.InRange) == 0 {
		return schema.Metric{}, reasonEmptyResponse, false
	}
	if len(response.InRange) < 2 {
		return schema.Metric{}, reasonShortResponse, false
	}
	base, ok := baselineValue(baseline)
	if !ok {
		return schema.Metric{}, reasonNoBaselineBase, false
	}
	x := make([]float64, len(response.InRange))
	for i, s := range response.InRange {
		x[i] = minutesBetween(event.StartTime, s.Timestamp)
	}
	area := algo.PositiveTrapezoid(x, response.Values(), base)
	summary := responseSummary(baseline, response, base)
	return newMetric(event, schema.MetricIAUC, area, string(cfg.Unit)+"*min", combinedCoverage(baseline, response),
		combinedFlags(baseline, response, cfg), summary, cfg.ResponseWindow, methodIAUC), "", true
}

// TimeToPeak is the minutes from event start to the earliest response maximum.
func TimeToPeak(event schema.Event, baseline, response schema.WindowResult, cfg schema.EngineConfig) (schema.Metric, string, bool) {
	if len(response.InRange) == 0 {
		return schema.Metric{}, reasonEmptyResponse, false
	}
	peak := response.InRange[earliestMax(response.InRange)]
	var summary schema.QualitySummary
	if base, ok := baselineValue(baseline); ok {
		summary = responseSummary(baseline, response, base)
	} else {
		summary = windowSummary(response)
		summary.PeakGlucose = schema.Float64Ptr(peak.Value)
		summary.PeakTime = schema.TimePtr(peak.Timestamp)
	}
	return newMetric(event, schema.MetricTimeToPeak, minutesBetween(event.StartTime, peak.Timestamp), "minutes", response.CoverageRatio,
		coverageFlags(response, cfg), summary, cfg.ResponseWindow, methodTimeToPeak), "", true
}

// RecoverySlope is the least-squares slope of value against minutes from the peak to the
// end of the response window. The summary carries the return-toward-baseline percentage.
func RecoverySlope(event schema.Event, baseline, response schema.WindowResult, cfg schema.EngineConfig) (schema.Metric, string, bool) {
	if len(response.InRange) == 0 {
		return schema.Metric{}, reasonEmptyResponse, false
	}
	peakIdx := earliestMax(response.InRange)
	tail := response.InRange[peakIdx:]
	if len(tail) < 2 {
		return schema.Metric{}, reasonShortRecovery, false
	}
	peak := tail[0]
	x := make([]float64, len(tail))
	y := make([]float64, len(tail))
	for i, s := range tail {
		x[i] = minutesBetween(peak.Timestamp, s.Timestamp)
		y[i] = s.Value
	}
	slope, ok := algo.LinearSlope(x, y)
	if !ok {
		return schema.Metric{}, reasonShortRecovery, false
	}

	last := tail[len(tail)-1].Value
	var summary schema.QualitySummary
	base, hasBase := baselineValue(baseline)
	if hasBase {
		summary = responseSummary(baseline, response, base)
	} else {
		summary = windowSummary(response)
		summary.PeakGlucose = schema.Float64Ptr(peak.Value)
		summary.PeakTime = schema.TimePtr(peak.Timestamp)
	}
	summary.LastValue = schema.Float64Ptr(last)
	summary.RegressionSamples = schema.IntPtr(len(tail))
	summary.ReturnTowardBaselinePc = ReturnTowardBaseline(peak.Value, last, base, hasBase)

	return newMetric(event, schema.MetricRecoverySlope, slope, string(cfg.Unit)+"/min", response.CoverageRatio,
		coverageFlags(response, cfg), summary, cfg.ResponseWindow, methodRecoverySlope), "", true
}

// ReturnTowardBaseline is 100*(peak-last)/(peak-baseline) clamped to [0,100].
// It is nil when there is no baseline or no rise above it.
func ReturnTowardBaseline(peak, last, baseline float64, hasBaseline bool) *float64 {
	if !hasBaseline || peak <= baseline {
		return nil
	}
	pct := 100 * (peak - last) / (peak - baseline)
	return schema.Float64Ptr(math.Max(0, math.Min(100, pct)))
}

// NadirGlucose is the minimum of the response window.
func NadirGlucose(event schema.Event, response schema.WindowResult, cfg schema.EngineConfig) (schema.Metric, string, bool) {
	if len(response.InRange) == 0 {
		return schema.Metric{}, reasonEmptyResponse, false
	}
	nadir := response.InRange[earliestMin(response.InRange)]
	summary := windowSummary(response)
	summary.NadirGlucose = schema.Float64Ptr(nadir.Value)
	return newMetric(event, schema.MetricNadir, nadir.Value, string(cfg.Unit), response.CoverageRatio,
		coverageFlags(response, cfg), summary, cfg.ResponseWindow, methodNadir), "", true
}

func newMetric(event schema.Event, name schema.MetricName, value float64, unit string, coverage *float64,
	flags []schema.QualityFlag, summary schema.QualitySummary, window schema.WindowSpec, method string,
) schema.Metric {
	return schema.Metric{
		EventID:        event.ID,
		Name:           name,
		Value:          value,
		Unit:           unit,
		CoverageRatio:  coverage,
		QualityFlags:   schema.SortedFlags(flags),
		QualitySummary: summary,
		Window: schema.MetricWindow{
			RelativeTo:         "event_start",
			StartOffsetMinutes: window.StartOffsetMinutes,
			EndOffsetMinutes:   window.EndOffsetMinutes,
		},
		Method:  method,
		Version: MetricVersion,
	}
}

func baselineValue(baseline schema.WindowResult) (float64, bool) {
	if len(baseline.InRange) == 0 {
		return 0, false
	}
	return algo.Mean(baseline.Values()), true
}

// earliestMax returns the index of the first maximum.
func earliestMax(samples []schema.Sample) int {
	best := 0
	for i := 1; i < len(samples); i++ {
		if samples[i].Value > samples[best].Value {
			best = i
		}
	}
	return best
}

// earliestMin returns the index of the first minimum.
func earliestMin(samples []schema.Sample) int {
	best := 0
	for i := 1; i < len(samples); i++ {
		if samples[i].Value < samples[best].Value {
			best = i
		}
	}
	return best
}

func windowSummary(w schema.WindowResult) schema.QualitySummary {
	summary := schema.QualitySummary{
		WindowSamples:   len(w.InRange),
		ExpectedSamples: w.ExpectedCount,
	}
	if w.CoverageRatio != nil {
		summary.CoveragePercentage = schema.Float64Ptr(100 * *w.CoverageRatio)
	}
	return summary
}

func responseSummary(baseline, response schema.WindowResult, base float64) schema.QualitySummary {
	summary := windowSummary(response)
	summary.BaselineGlucose = schema.Float64Ptr(base)
	summary.BaselineSamples = schema.IntPtr(len(baseline.InRange))
	if len(response.InRange) > 0 {
		peak := response.InRange[earliestMax(response.InRange)]
		summary.PeakGlucose = schema.Float64Ptr(peak.Value)
		summary.PeakTime = schema.TimePtr(peak.Timestamp)
		summary.NadirGlucose = schema.Float64Ptr(response.InRange[earliestMin(response.InRange)].Value)
	}
	return summary
}

// coverageFlags derives quality flags from one window.
func coverageFlags(w schema.WindowResult, cfg schema.EngineConfig) []schema.QualityFlag {
	var flags []schema.QualityFlag
	switch {
	case w.CoverageRatio == nil:
		flags = append(flags, schema.FlagInsufficientData)
	default:
		cov := *w.CoverageRatio
		if cov < cfg.CoverageWarnThreshold {
			flags = append(flags, schema.FlagLowCoverage)
		}
		if cov < cfg.CoverageFailThreshold {
			flags = append(flags, schema.FlagInsufficientCoverage)
		}
		if cov < 1.0 {
			flags = append(flags, schema.FlagMissingData)
		}
	}
	if w.ArtifactCount > 0 {
		flags = append(flags, schema.FlagArtifactInWindow)
	}
	return flags
}

// combinedCoverage is the lower of the two window coverages; nil if either is nil.
func combinedCoverage(a, b schema.WindowResult) *float64 {
	if a.CoverageRatio == nil || b.CoverageRatio == nil {
		return nil
	}
	return schema.Float64Ptr(math.Min(*a.CoverageRatio, *b.CoverageRatio))
}

func combinedFlags(a, b schema.WindowResult, cfg schema.EngineConfig) []schema.QualityFlag {
	return append(coverageFlags(a, cfg), coverageFlags(b, cfg)...)
}
