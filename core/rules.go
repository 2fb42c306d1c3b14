package core

import "github.com/huangsam/cgmlens/schema"

// RuleInput is what the status rules look at.
type RuleInput struct {
	Checks       []schema.CheckResult
	Limitations  []schema.Limitation
	UsableEvents int
}

// StatusRule maps a predicate over the checklist to a verdict status.
type StatusRule struct {
	Name    string
	Status  schema.VerdictStatus
	Matches func(RuleInput) bool
}

// StatusRules is evaluated top to bottom; the first match decides the status.
var StatusRules = []StatusRule{
	{
		Name:   "data_availability_failed",
		Status: schema.StatusUnanswerable,
		Matches: func(in RuleInput) bool {
			return anyOutcome(in.Checks, schema.CategoryDataAvailability, schema.CheckFailed)
		},
	},
	{
		Name:   "methodology_feasible",
		Status: schema.StatusAnswerable,
		Matches: func(in RuleInput) bool {
			return allPassed(in.Checks, schema.CategoryMethodology) && !anyBlocking(in.Limitations)
		},
	},
	{
		Name:   "partially_supported",
		Status: schema.StatusPartial,
		Matches: func(in RuleInput) bool {
			if in.UsableEvents < 1 {
				return false
			}
			return anyOutcome(in.Checks, schema.CategoryMethodology, schema.CheckFailed) || anyBlocking(in.Limitations)
		},
	},
	{
		Name:    "fallback",
		Status:  schema.StatusUnknown,
		Matches: func(RuleInput) bool { return true },
	},
}

// DeriveStatus returns the status and name of the first matching rule.
func DeriveStatus(in RuleInput) (schema.VerdictStatus, string) {
	for _, rule := range StatusRules {
		if rule.Matches(in) {
			return rule.Status, rule.Name
		}
	}
	return schema.StatusUnknown, "fallback"
}

func anyOutcome(checks []schema.CheckResult, category schema.CheckCategory, outcome schema.CheckOutcome) bool {
	for _, c := range checks {
		if c.Category == category && c.Outcome == outcome {
			return true
		}
	}
	return false
}

// allPassed is false for an empty category.
func allPassed(checks []schema.CheckResult, category schema.CheckCategory) bool {
	seen := false
	for _, c := range checks {
		if c.Category != category {
			continue
		}
		seen = true
		if c.Outcome != schema.CheckPassed {
			return false
		}
	}
	return seen
}

func anyBlocking(limitations []schema.Limitation) bool {
	for _, l := range limitations {
		if l.Blocking {
			return true
		}
	}
	return false
}
