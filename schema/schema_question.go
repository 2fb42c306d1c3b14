package schema

import "time"

// Selector matches an exposure component against a value.
type Selector struct {
	Component string   `json:"component,omitempty" yaml:"component,omitempty"`
	Operator  Operator `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value     any      `json:"value,omitempty" yaml:"value,omitempty"`
	Unit      string   `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// EventDefinition selects events by type and optional component selector.
type EventDefinition struct {
	EventType string    `json:"event_type" yaml:"event_type"`
	Selector  *Selector `json:"selector,omitempty" yaml:"selector,omitempty"`
}

// Condition is one inclusion criterion.
type Condition struct {
	Type     ConditionType `json:"type" yaml:"type"`
	Selector `yaml:",inline"`
}

// Counterfactual states what the exposure is compared against.
type Counterfactual struct {
	Kind       CounterfactualKind `json:"kind" yaml:"kind"`
	Comparison *EventDefinition   `json:"comparison,omitempty" yaml:"comparison,omitempty"`
}

// OutcomeSpec names the outcome metric and optionally its window.
type OutcomeSpec struct {
	Metric MetricName  `json:"metric" yaml:"metric"`
	Window *WindowSpec `json:"window,omitempty" yaml:"window,omitempty"`
}

// Assumption is a declared modelling assumption.
type Assumption struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Known assumption names that can be verified against data.
const (
	AssumeNoOverlappingExposures = "no_overlapping_exposures"
	AssumeIsolatedEvents         = "isolated_events"
	AssumeRegularSampling        = "regular_sampling"
)

// Confounder is a declared confounding factor.
type Confounder struct {
	Name       string `json:"name" yaml:"name"`
	Controlled bool   `json:"controlled" yaml:"controlled"`
}

// TimeSpan restricts events to a start-time range. Either bound may be nil.
type TimeSpan struct {
	Start *time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	End   *time.Time `json:"end,omitempty" yaml:"end,omitempty"`
}

// Contains reports whether t falls inside the span.
func (ts *TimeSpan) Contains(t time.Time) bool {
	if ts == nil {
		return true
	}
	if ts.Start != nil && t.Before(*ts.Start) {
		return false
	}
	if ts.End != nil && t.After(*ts.End) {
		return false
	}
	return true
}

// QuestionSpec is a precise within-person question about an exposure and an outcome.
type QuestionSpec struct {
	ID                string          `json:"question_id" yaml:"question_id"`
	Text              string          `json:"text,omitempty" yaml:"text,omitempty"`
	SubjectID         string          `json:"subject_id,omitempty" yaml:"subject_id,omitempty"`
	Kind              QuestionKind    `json:"kind" yaml:"kind"`
	Exposure          EventDefinition `json:"exposure" yaml:"exposure"`
	Counterfactual    Counterfactual  `json:"counterfactual" yaml:"counterfactual"`
	Outcome           OutcomeSpec     `json:"outcome" yaml:"outcome"`
	InclusionCriteria []Condition     `json:"inclusion_criteria,omitempty" yaml:"inclusion_criteria,omitempty"`
	Assumptions       []Assumption    `json:"assumptions,omitempty" yaml:"assumptions,omitempty"`
	Confounders       []Confounder    `json:"confounders,omitempty" yaml:"confounders,omitempty"`
	TimeSpan          *TimeSpan       `json:"time_span,omitempty" yaml:"time_span,omitempty"`
}

// IsComparative reports whether the question needs a comparison group.
func (q QuestionSpec) IsComparative() bool {
	return q.Kind == KindComparative && q.Counterfactual.Kind == CounterfactualComparisonEvents
}

// UncontrolledConfounders counts declared confounders that are not controlled.
func (q QuestionSpec) UncontrolledConfounders() int {
	n := 0
	for _, c := range q.Confounders {
		if !c.Controlled {
			n++
		}
	}
	return n
}
