package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/huangsam/cgmlens/schema"
)

// MatchesDefinition reports whether an event has the definition's type and satisfies its
// selector. A definition without a selector matches on type alone.
func MatchesDefinition(ev schema.Event, def schema.EventDefinition) bool {
	if !strings.EqualFold(strings.TrimSpace(ev.Type), strings.TrimSpace(def.EventType)) {
		return false
	}
	if def.Selector == nil {
		return true
	}
	return matchSelector(ev, *def.Selector)
}

// MatchesConditions reports whether an event satisfies every inclusion condition.
func MatchesConditions(ev schema.Event, conditions []schema.Condition) bool {
	for _, c := range conditions {
		if !matchCondition(ev, c) {
			return false
		}
	}
	return true
}

func matchSelector(ev schema.Event, sel schema.Selector) bool {
	if sel.Component == "" {
		return false
	}
	value, unit, ok := resolveComponent(ev, sel.Component)
	if sel.Operator == schema.OpExists {
		return ok && value != nil
	}
	if !ok || value == nil {
		return false
	}
	if sel.Unit != "" && unit != "" && !strings.EqualFold(sel.Unit, unit) {
		return false
	}
	return compare(sel.Operator, value, sel.Value)
}

func matchCondition(ev schema.Event, c schema.Condition) bool {
	switch c.Type {
	case schema.ConditionContextTag:
		return compare(c.Operator, stringsToAny(ev.ContextTags), c.Value)
	case schema.ConditionTimeOfDay:
		minutes := float64(ev.StartTime.Hour()*60 + ev.StartTime.Minute())
		return compare(c.Operator, minutes, normalizeTimeValue(c.Value))
	default:
		return matchSelector(ev, c.Selector)
	}
}

// resolveComponent looks up a named attribute or exposure component on an event.
func resolveComponent(ev schema.Event, component string) (any, string, bool) {
	switch strings.ToLower(component) {
	case "label", "food_name":
		return ev.Label, "", ev.Label != ""
	case "event_type":
		return ev.Type, "", true
	case "source":
		return ev.Source, "", ev.Source != ""
	case "annotation_quality":
		return ev.AnnotationQuality, "", true
	case "context_tag", "context_tags", "context":
		return stringsToAny(ev.ContextTags), "", len(ev.ContextTags) > 0
	}
	if q, ok := ev.Components[component]; ok {
		return q.Value, q.Unit, true
	}
	for name, q := range ev.Components {
		if strings.EqualFold(name, component) {
			return q.Value, q.Unit, true
		}
	}
	return nil, "", false
}

// compare applies a selector operator to a candidate value.
func compare(op schema.Operator, candidate, value any) bool {
	switch op {
	case schema.OpEqual:
		return equals(candidate, value)
	case schema.OpLess, schema.OpGreater, schema.OpLessEqual, schema.OpGreaterEqual:
		c, okC := toFloat(candidate)
		v, okV := toFloat(value)
		if !okC || !okV {
			return false
		}
		switch op {
		case schema.OpLess:
			return c < v
		case schema.OpGreater:
			return c > v
		case schema.OpLessEqual:
			return c <= v
		default:
			return c >= v
		}
	case schema.OpBetween:
		bounds, ok := toList(value)
		if !ok || len(bounds) != 2 {
			return false
		}
		lower, okL := toFloat(timeValue(bounds[0]))
		upper, okU := toFloat(timeValue(bounds[1]))
		c, okC := toFloat(timeValue(candidate))
		if !okL || !okU || !okC {
			return false
		}
		if lower <= upper {
			return lower <= c && c <= upper
		}
		// wraps midnight, e.g. 22:00..02:00
		return c >= lower || c <= upper
	case schema.OpIn:
		options, ok := toList(value)
		if !ok {
			return false
		}
		for _, opt := range options {
			if equals(candidate, opt) {
				return true
			}
		}
		return false
	case schema.OpExists:
		return candidate != nil
	}
	return false
}

func equals(candidate, value any) bool {
	if items, ok := candidate.([]any); ok {
		for _, item := range items {
			if equals(item, value) {
				return true
			}
		}
		return false
	}
	cs, cIsString := candidate.(string)
	vs, vIsString := value.(string)
	if cIsString && vIsString {
		return strings.EqualFold(strings.TrimSpace(cs), strings.TrimSpace(vs))
	}
	if c, ok := toFloat(candidate); ok {
		if v, ok := toFloat(value); ok {
			return c == v
		}
	}
	return fmt.Sprint(candidate) == fmt.Sprint(value)
}

// timeValue converts "HH:MM" to minutes after midnight and passes anything else through.
func timeValue(v any) any {
	s, ok := v.(string)
	if !ok || !strings.Contains(s, ":") {
		return v
	}
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil {
		return v
	}
	return float64(h*60 + m)
}

func normalizeTimeValue(v any) any {
	if items, ok := toList(v); ok {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = timeValue(item)
		}
		return out
	}
	return timeValue(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toList(v any) ([]any, bool) {
	switch items := v.(type) {
	case []any:
		return items, true
	case []string:
		return stringsToAny(items), true
	case []float64:
		out := make([]any, len(items))
		for i, f := range items {
			out[i] = f
		}
		return out, true
	case []int:
		out := make([]any, len(items))
		for i, n := range items {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

func stringsToAny(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
