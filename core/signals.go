package core

import (
	"fmt"
	"sort"

	"github.com/huangsam/cgmlens/core/algo"
	"github.com/huangsam/cgmlens/schema"
)

// signalMetrics must all be present for an event to leave gray.
var signalMetrics = []schema.MetricName{
	schema.MetricDeltaPeak,
	schema.MetricIAUC,
	schema.MetricNadir,
	schema.MetricRecoverySlope,
}

// Metrics judged against personal upper percentiles; nadir is judged against lower ones.
var personalHighMetrics = []schema.MetricName{schema.MetricDeltaPeak, schema.MetricIAUC, schema.MetricRecoverySlope}

// ComputeEventSignals assigns each event a red, yellow, green or gray status. Events are
// processed in start order so personal percentiles only use earlier, well-covered events.
func ComputeEventSignals(metrics []schema.EventMetrics, cfg schema.EngineConfig) []schema.EventSignal {
	ordered := make([]schema.EventMetrics, len(metrics))
	copy(ordered, metrics)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StartTime.Before(ordered[j].StartTime) })

	history := make(map[schema.MetricName][]float64, len(signalMetrics))
	signals := make([]schema.EventSignal, 0, len(ordered))
	for _, em := range ordered {
		sig := evaluateSignal(em, history, cfg)
		signals = append(signals, sig)
		if sig.Status == schema.SignalGray {
			continue
		}
		for _, name := range signalMetrics {
			if m, ok := em.Get(name); ok {
				history[name] = append(history[name], m.Value)
			}
		}
	}
	return signals
}

func evaluateSignal(em schema.EventMetrics, history map[schema.MetricName][]float64, cfg schema.EngineConfig) schema.EventSignal {
	sig := schema.EventSignal{
		EventID:      em.EventID,
		EventType:    em.EventType,
		StartTime:    em.StartTime,
		Triggers:     []schema.SignalTrigger{},
		MetricValues: map[schema.MetricName]float64{},
	}
	for _, name := range signalMetrics {
		m, ok := em.Get(name)
		if !ok {
			sig.Reasons = append(sig.Reasons, fmt.Sprintf("missing metric: %s", name))
			continue
		}
		sig.MetricValues[name] = m.Value
		if m.CoverageRatio != nil && (sig.CoverageRatio == nil || *m.CoverageRatio < *sig.CoverageRatio) {
			sig.CoverageRatio = schema.Float64Ptr(*m.CoverageRatio)
		}
	}
	var peak *float64
	if dp, ok := em.Get(schema.MetricDeltaPeak); ok && dp.QualitySummary.PeakGlucose != nil {
		peak = dp.QualitySummary.PeakGlucose
		sig.MetricValues[schema.SignalPeakGlucose] = *peak
	}
	sig.HistoryCount = historyWindow(history[schema.MetricDeltaPeak], cfg.SignalHistorySize)

	switch {
	case sig.CoverageRatio == nil:
		sig.Reasons = append(sig.Reasons, "coverage unavailable")
	case *sig.CoverageRatio < cfg.SignalCoverageSoft:
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("coverage %.0f%% < %.0f%%", 100*(*sig.CoverageRatio), 100*cfg.SignalCoverageSoft))
	}
	if len(sig.Reasons) > 0 {
		sig.Status = schema.SignalGray
		return sig
	}

	unit := string(cfg.Unit)
	var red, yellow []schema.SignalTrigger
	if peak != nil && *peak > cfg.SignalPeakHighLimit {
		red = append(red, newTrigger(schema.SignalPeakGlucose, *peak, cfg.SignalPeakHighLimit, ">", schema.BasisAbsolute, schema.SignalRed, "hard limit", unit))
	}
	if nadir := sig.MetricValues[schema.MetricNadir]; nadir < cfg.SignalNadirLowLimit {
		red = append(red, newTrigger(schema.MetricNadir, nadir, cfg.SignalNadirLowLimit, "<", schema.BasisAbsolute, schema.SignalRed, "hard limit", unit))
	}

	for _, name := range personalHighMetrics {
		values := recent(history[name], cfg.SignalHistorySize)
		if len(values) < cfg.SignalMinHistory {
			continue
		}
		v := sig.MetricValues[name]
		if p90 := algo.Percentile(values, 90); v >= p90 {
			red = append(red, newTrigger(name, v, p90, ">", schema.BasisPersonal, schema.SignalRed, "personal P90", unit))
		} else if p75 := algo.Percentile(values, 75); v >= p75 {
			yellow = append(yellow, newTrigger(name, v, p75, ">", schema.BasisPersonal, schema.SignalYellow, "personal P75", unit))
		}
	}
	if values := recent(history[schema.MetricNadir], cfg.SignalHistorySize); len(values) >= cfg.SignalMinHistory {
		v := sig.MetricValues[schema.MetricNadir]
		if p10 := algo.Percentile(values, 10); v <= p10 {
			red = append(red, newTrigger(schema.MetricNadir, v, p10, "<", schema.BasisPersonal, schema.SignalRed, "personal P10", unit))
		} else if p25 := algo.Percentile(values, 25); v <= p25 {
			yellow = append(yellow, newTrigger(schema.MetricNadir, v, p25, "<", schema.BasisPersonal, schema.SignalYellow, "personal P25", unit))
		}
	}

	sig.Triggers = append(append(sig.Triggers, red...), yellow...)
	switch {
	case len(red) > 0:
		sig.Status = schema.SignalRed
	case len(yellow) > 0:
		sig.Status = schema.SignalYellow
	default:
		sig.Status = schema.SignalGreen
	}
	return sig
}

func newTrigger(metric schema.MetricName, value, threshold float64, cmp, basis string, severity schema.SignalStatus, label, unit string) schema.SignalTrigger {
	return schema.SignalTrigger{
		Metric:     metric,
		Value:      value,
		Threshold:  threshold,
		Comparison: cmp,
		Basis:      basis,
		Severity:   severity,
		Message:    fmt.Sprintf("%s=%.2f %s %s %.2f %s (%s)", metric, value, unit, cmp, threshold, unit, label),
	}
}

func recent(values []float64, size int) []float64 {
	if size > 0 && len(values) > size {
		return values[len(values)-size:]
	}
	return values
}

func historyWindow(values []float64, size int) int {
	return len(recent(values, size))
}
