package schema

import "time"

// CheckResult is one checklist item.
type CheckResult struct {
	Name     string        `json:"name"`
	Category CheckCategory `json:"category"`
	Outcome  CheckOutcome  `json:"outcome"`
	Finding  string        `json:"finding"`
}

// Limitation is a structural caveat on a verdict.
type Limitation struct {
	Text     string `json:"text"`
	Blocking bool   `json:"blocking"`
}

// Checklist groups finding strings by section.
type Checklist struct {
	DataAvailability []string `json:"data_availability"`
	Methodology      []string `json:"methodology"`
	Limitations      []string `json:"limitations"`
	Issues           []string `json:"issues"`
}

// ConfidenceBreakdown holds the clamped sub-scores and weights behind a confidence value.
type ConfidenceBreakdown struct {
	DataCompleteness       float64           `json:"data_completeness"`
	MethodologyReliability float64           `json:"methodology_reliability"`
	ConfoundControl        float64           `json:"confound_control"`
	TimingAccuracy         float64           `json:"timing_accuracy"`
	Weights                ConfidenceWeights `json:"weights"`
}

// GroupStats tallies event selection for one group.
type GroupStats struct {
	Group          string   `json:"group"`
	Matched        int      `json:"matched"`
	Usable         int      `json:"usable"`
	MissingMetric  int      `json:"missing_metric"`
	LowCoverage    int      `json:"low_coverage"`
	WindowMismatch int      `json:"window_mismatch"`
	Confounded     int      `json:"confounded"`
	EventIDs       []string `json:"event_ids"`
	UsableEventIDs []string `json:"usable_event_ids"`
}

// Group names.
const (
	GroupExposure   = "exposure"
	GroupComparison = "comparison"
)

// Data requirement types.
const (
	RequireCollectEvents         = "collect_events"
	RequireComputeMetrics        = "compute_metrics"
	RequireImproveCoverage       = "improve_cgm_coverage"
	RequireRecomputeMetrics      = "recompute_metrics"
	RequireCollectIsolatedEvents = "collect_isolated_events"
	RequireRefineDefinitions     = "refine_definitions"
)

// DataRequirement tells the user what data would move a verdict forward.
type DataRequirement struct {
	Type   string `json:"type"`
	Group  string `json:"group,omitempty"`
	Needed int    `json:"needed,omitempty"`
	Detail string `json:"detail"`
}

// Verdict is the structured answerability decision for one question.
type Verdict struct {
	QuestionID          string              `json:"question_id"`
	Status              VerdictStatus       `json:"status"`
	Confidence          float64             `json:"confidence"`
	ConfidenceBreakdown ConfidenceBreakdown `json:"confidence_breakdown"`
	Checklist           Checklist           `json:"checklist"`
	FailedChecks        []string            `json:"failed_checks"`
	Checks              []CheckResult       `json:"checks"`
	Limitations         []Limitation        `json:"limitations"`
	Groups              []GroupStats        `json:"groups"`
	DataRequirements    []DataRequirement   `json:"data_requirements"`
	MatchedRule         string              `json:"matched_rule"`
}

// QuestionOutcome pairs a question with its verdict or the error that stopped it.
type QuestionOutcome struct {
	QuestionID string   `json:"question_id"`
	Verdict    *Verdict `json:"verdict,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// EvaluationReport is everything one evaluation run produced.
type EvaluationReport struct {
	RunID       string            `json:"run_id"`
	EvaluatedAt time.Time         `json:"evaluated_at"`
	SeriesID    string            `json:"series_id"`
	Quality     SignalQuality     `json:"signal_quality"`
	Outcomes    []QuestionOutcome `json:"outcomes"`
}
