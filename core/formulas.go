package core

import (
	"fmt"

	"github.com/huangsam/cgmlens/schema"
)

// BuildFormulasModel describes every metric, the confidence score and the status rules
// with the thresholds of the given configuration.
func BuildFormulasModel(cfg schema.EngineConfig) schema.FormulasRenderModel {
	unit := string(cfg.Unit)
	baseline := formatWindow(cfg.BaselineWindow)
	response := formatWindow(cfg.ResponseWindow)
	w := cfg.ConfidenceWeights

	rules := make([]string, 0, len(StatusRules))
	for i, r := range StatusRules {
		rules = append(rules, fmt.Sprintf("%d. %s -> %s", i+1, r.Name, r.Status))
	}

	return schema.FormulasRenderModel{
		Title:       "cgmlens Metrics & Confidence",
		Description: fmt.Sprintf("Windows are minute offsets from event start; coverage < %.2f flags low_coverage, < %.2f insufficient_coverage", cfg.CoverageWarnThreshold, cfg.CoverageFailThreshold),
		Metrics: []schema.FormulaDefinition{
			{Name: schema.MetricBaseline, Unit: unit, Window: baseline, Formula: "mean(valid baseline samples)"},
			{Name: schema.MetricDeltaPeak, Unit: unit, Window: response, Formula: "max(response) - baseline"},
			{Name: schema.MetricIAUC, Unit: unit + "*min", Window: response, Formula: "trapezoid(max(0, g - baseline)) over minutes since start"},
			{Name: schema.MetricTimeToPeak, Unit: "minutes", Window: response, Formula: "minutes from start to earliest max(response)"},
			{Name: schema.MetricRecoverySlope, Unit: unit + "/min", Window: response, Formula: "least-squares slope from peak to window end"},
			{Name: schema.MetricNadir, Unit: unit, Window: response, Formula: "min(response)"},
		},
		Confidence: []schema.FormulaComponent{
			{Name: "data_completeness", Weight: w.DataCompleteness, Formula: "mean(outcome coverage) * min(1, usable / required)"},
			{Name: "methodology_reliability", Weight: w.MethodologyReliability, Formula: fmt.Sprintf("comparative: min(1, |d| * sqrt(n/2) / %.1f); descriptive: 1 - min(1, SE / |mean|)", detectableEffect)},
			{Name: "confound_control", Weight: w.ConfoundControl, Formula: "1 / (1 + uncontrolled confounders)"},
			{Name: "timing_accuracy", Weight: w.TimingAccuracy, Formula: fmt.Sprintf("1 / (1 + (1 - mean annotation quality) * %.0f / %.0f)", cfg.TimingUncertaintyMinutes, timingHalfMinutes)},
		},
		StatusRules: rules,
	}
}

func formatWindow(w schema.WindowSpec) string {
	return fmt.Sprintf("[%+g, %+g] min", w.StartOffsetMinutes, w.EndOffsetMinutes)
}
