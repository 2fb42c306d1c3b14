package core

import (
	"testing"

	"github.com/huangsam/cgmlens/schema"
	"github.com/stretchr/testify/assert"
)

func check(category schema.CheckCategory, outcome schema.CheckOutcome) schema.CheckResult {
	return schema.CheckResult{Name: "c", Category: category, Outcome: outcome}
}

func TestDeriveStatus(t *testing.T) {
	passedData := check(schema.CategoryDataAvailability, schema.CheckPassed)
	failedData := check(schema.CategoryDataAvailability, schema.CheckFailed)
	passedMethod := check(schema.CategoryMethodology, schema.CheckPassed)
	failedMethod := check(schema.CategoryMethodology, schema.CheckFailed)
	undecidedMethod := check(schema.CategoryMethodology, schema.CheckIndeterminate)
	blocking := schema.Limitation{Text: "low annotation quality", Blocking: true}

	tests := []struct {
		name       string
		in         RuleInput
		wantStatus schema.VerdictStatus
		wantRule   string
	}{
		{
			name:       "data availability failure wins",
			in:         RuleInput{Checks: []schema.CheckResult{failedData, passedMethod}, UsableEvents: 20},
			wantStatus: schema.StatusUnanswerable,
			wantRule:   "data_availability_failed",
		},
		{
			name:       "everything passes",
			in:         RuleInput{Checks: []schema.CheckResult{passedData, passedMethod}, UsableEvents: 20},
			wantStatus: schema.StatusAnswerable,
			wantRule:   "methodology_feasible",
		},
		{
			name:       "methodology failure with usable events",
			in:         RuleInput{Checks: []schema.CheckResult{passedData, failedMethod}, UsableEvents: 3},
			wantStatus: schema.StatusPartial,
			wantRule:   "partially_supported",
		},
		{
			name: "blocking limitation",
			in: RuleInput{
				Checks:       []schema.CheckResult{passedData, passedMethod},
				Limitations:  []schema.Limitation{blocking},
				UsableEvents: 12,
			},
			wantStatus: schema.StatusPartial,
			wantRule:   "partially_supported",
		},
		{
			name:       "methodology failure without usable events",
			in:         RuleInput{Checks: []schema.CheckResult{passedData, failedMethod}},
			wantStatus: schema.StatusUnknown,
			wantRule:   "fallback",
		},
		{
			name:       "indeterminate methodology",
			in:         RuleInput{Checks: []schema.CheckResult{passedData, undecidedMethod}, UsableEvents: 5},
			wantStatus: schema.StatusUnknown,
			wantRule:   "fallback",
		},
		{
			name:       "no checks",
			in:         RuleInput{},
			wantStatus: schema.StatusUnknown,
			wantRule:   "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, rule := DeriveStatus(tt.in)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantRule, rule)
		})
	}
}

func TestStatusRulesCoverEveryStatus(t *testing.T) {
	seen := map[schema.VerdictStatus]bool{}
	for _, r := range StatusRules {
		seen[r.Status] = true
	}
	for _, s := range schema.AllVerdictStatuses {
		assert.True(t, seen[s], "no rule yields %s", s)
	}
	assert.Equal(t, "fallback", StatusRules[len(StatusRules)-1].Name)
}
