package core

import (
	"testing"
	"time"

	"github.com/huangsam/cgmlens/schema"
	"github.com/stretchr/testify/assert"
)

func TestMatchesDefinition(t *testing.T) {
	ev := mealEvent("e1", 0)
	ev.Components["rice"] = schema.Quantity{Value: 150, Unit: "g"}
	ev.Components["drink"] = schema.Quantity{Value: "orange juice"}

	tests := []struct {
		name string
		def  schema.EventDefinition
		want bool
	}{
		{name: "type only", def: schema.EventDefinition{EventType: "meal"}, want: true},
		{name: "type is case insensitive", def: schema.EventDefinition{EventType: " Meal "}, want: true},
		{name: "wrong type", def: schema.EventDefinition{EventType: "exercise"}, want: false},
		{
			name: "greater than",
			def:  schema.EventDefinition{EventType: "meal", Selector: &schema.Selector{Component: "carbs", Operator: schema.OpGreater, Value: 30}},
			want: true,
		},
		{
			name: "less than fails",
			def:  schema.EventDefinition{EventType: "meal", Selector: &schema.Selector{Component: "carbs", Operator: schema.OpLess, Value: 30}},
			want: false,
		},
		{
			name: "greater equal on boundary",
			def:  schema.EventDefinition{EventType: "meal", Selector: &schema.Selector{Component: "carbs", Operator: schema.OpGreaterEqual, Value: "45"}},
			want: true,
		},
		{
			name: "between",
			def:  schema.EventDefinition{EventType: "meal", Selector: &schema.Selector{Component: "rice", Operator: schema.OpBetween, Value: []any{100, 200}}},
			want: true,
		},
		{
			name: "unit mismatch",
			def:  schema.EventDefinition{EventType: "meal", Selector: &schema.Selector{Component: "rice", Operator: schema.OpGreater, Value: 100, Unit: "kg"}},
			want: false,
		},
		{
			name: "string equality ignores case",
			def:  schema.EventDefinition{EventType: "meal", Selector: &schema.Selector{Component: "drink", Operator: schema.OpEqual, Value: "Orange Juice"}},
			want: true,
		},
		{
			name: "in list",
			def:  schema.EventDefinition{EventType: "meal", Selector: &schema.Selector{Component: "label", Operator: schema.OpIn, Value: []any{"toast", "oatmeal"}}},
			want: true,
		},
		{
			name: "exists",
			def:  schema.EventDefinition{EventType: "meal", Selector: &schema.Selector{Component: "rice", Operator: schema.OpExists}},
			want: true,
		},
		{
			name: "missing component",
			def:  schema.EventDefinition{EventType: "meal", Selector: &schema.Selector{Component: "fat", Operator: schema.OpExists}},
			want: false,
		},
		{
			name: "numeric against text",
			def:  schema.EventDefinition{EventType: "meal", Selector: &schema.Selector{Component: "drink", Operator: schema.OpGreater, Value: 1}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesDefinition(ev, tt.def))
		})
	}
}

func TestMatchesConditions(t *testing.T) {
	ev := mealEvent("e1", 0) // 12:00 UTC
	ev.ContextTags = []string{"post_workout", "home"}

	late := ev
	late.StartTime = time.Date(2024, 3, 4, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		ev         schema.Event
		conditions []schema.Condition
		want       bool
	}{
		{name: "no conditions", ev: ev, want: true},
		{
			name: "context tag present",
			ev:   ev,
			conditions: []schema.Condition{
				{Type: schema.ConditionContextTag, Selector: schema.Selector{Operator: schema.OpEqual, Value: "home"}},
			},
			want: true,
		},
		{
			name: "context tag absent",
			ev:   ev,
			conditions: []schema.Condition{
				{Type: schema.ConditionContextTag, Selector: schema.Selector{Operator: schema.OpEqual, Value: "fasted"}},
			},
			want: false,
		},
		{
			name: "time of day between",
			ev:   ev,
			conditions: []schema.Condition{
				{Type: schema.ConditionTimeOfDay, Selector: schema.Selector{Operator: schema.OpBetween, Value: []any{"11:00", "14:00"}}},
			},
			want: true,
		},
		{
			name: "time of day wraps midnight",
			ev:   late,
			conditions: []schema.Condition{
				{Type: schema.ConditionTimeOfDay, Selector: schema.Selector{Operator: schema.OpBetween, Value: []any{"22:00", "02:00"}}},
			},
			want: true,
		},
		{
			name: "time of day outside",
			ev:   ev,
			conditions: []schema.Condition{
				{Type: schema.ConditionTimeOfDay, Selector: schema.Selector{Operator: schema.OpLess, Value: "09:00"}},
			},
			want: false,
		},
		{
			name: "all conditions must hold",
			ev:   ev,
			conditions: []schema.Condition{
				{Type: schema.ConditionContextTag, Selector: schema.Selector{Operator: schema.OpEqual, Value: "home"}},
				{Type: schema.ConditionComponent, Selector: schema.Selector{Component: "carbs", Operator: schema.OpGreater, Value: 60}},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesConditions(tt.ev, tt.conditions))
		})
	}
}
