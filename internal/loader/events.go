package loader

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/cgmlens/schema"
)

// DefaultAnnotationQuality applies when an event omits annotation_quality.
const DefaultAnnotationQuality = 0.8

// contextTagsPrefix marks the notes line that carries context tags.
const contextTagsPrefix = "Context tags:"

// rawComponent is one entry of the list form of exposure_components.
type rawComponent struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	Unit  string `json:"unit"`
}

// rawEvent mirrors one event of the events JSON document.
type rawEvent struct {
	EventID            string          `json:"event_id"`
	EventType          string          `json:"event_type"`
	Label              string          `json:"label"`
	StartTime          string          `json:"start_time"`
	EndTime            string          `json:"end_time"`
	ExposureComponents json.RawMessage `json:"exposure_components"`
	AnnotationQuality  *float64        `json:"annotation_quality"`
	ContextTags        []string        `json:"context_tags"`
	Notes              string          `json:"notes"`
	Source             string          `json:"source"`
}

// rawEventSet mirrors the events JSON document.
type rawEventSet struct {
	SubjectID string     `json:"subject_id"`
	TimeZone  string     `json:"time_zone"`
	Events    []rawEvent `json:"events"`
}

// LoadEvents reads an events JSON file.
func LoadEvents(path string) (schema.EventSet, error) {
	data, err := readFile("events", path)
	if err != nil {
		return schema.EventSet{}, err
	}
	set, err := ParseEvents(data)
	if err != nil {
		return schema.EventSet{}, fmt.Errorf("events file %q: %w", path, err)
	}
	return set, nil
}

// ParseEvents decodes events JSON. Exposure components may be a list of {name, value, unit}
// objects or a map keyed by component name.
func ParseEvents(data []byte) (schema.EventSet, error) {
	var raw rawEventSet
	if err := json.Unmarshal(data, &raw); err != nil {
		return schema.EventSet{}, fmt.Errorf("invalid events JSON: %w", err)
	}
	loc, err := loadLocation(raw.TimeZone)
	if err != nil {
		return schema.EventSet{}, err
	}

	set := schema.EventSet{SubjectID: raw.SubjectID, Events: make([]schema.Event, 0, len(raw.Events))}
	seen := make(map[string]struct{}, len(raw.Events))
	for i, re := range raw.Events {
		ev, err := convertEvent(re, loc)
		if err != nil {
			return schema.EventSet{}, fmt.Errorf("event %d (%s): %w", i, re.EventID, err)
		}
		if _, dup := seen[ev.ID]; dup {
			return schema.EventSet{}, fmt.Errorf("duplicate event_id %q", ev.ID)
		}
		seen[ev.ID] = struct{}{}
		set.Events = append(set.Events, ev)
	}
	return set, nil
}

func convertEvent(re rawEvent, loc *time.Location) (schema.Event, error) {
	if strings.TrimSpace(re.EventID) == "" {
		return schema.Event{}, fmt.Errorf("event_id is required")
	}
	if strings.TrimSpace(re.EventType) == "" {
		return schema.Event{}, fmt.Errorf("event_type is required")
	}
	start, err := ParseTimestamp(re.StartTime, loc)
	if err != nil {
		return schema.Event{}, fmt.Errorf("start_time: %w", err)
	}

	ev := schema.Event{
		ID:                re.EventID,
		Type:              re.EventType,
		Label:             strings.TrimSpace(re.Label),
		StartTime:         start,
		AnnotationQuality: DefaultAnnotationQuality,
		Source:            re.Source,
	}
	if re.EndTime != "" {
		end, err := ParseTimestamp(re.EndTime, loc)
		if err != nil {
			return schema.Event{}, fmt.Errorf("end_time: %w", err)
		}
		if end.Before(start) {
			return schema.Event{}, fmt.Errorf("end_time %s precedes start_time %s", re.EndTime, re.StartTime)
		}
		ev.EndTime = &end
	}
	if re.AnnotationQuality != nil {
		if *re.AnnotationQuality < 0 || *re.AnnotationQuality > 1 {
			return schema.Event{}, fmt.Errorf("annotation_quality must be between 0 and 1 (received %.2f)", *re.AnnotationQuality)
		}
		ev.AnnotationQuality = *re.AnnotationQuality
	}

	components, err := parseComponents(re.ExposureComponents)
	if err != nil {
		return schema.Event{}, err
	}
	ev.Components = components

	ev.ContextTags = mergeTags(re.ContextTags, tagsFromNotes(re.Notes))
	return ev, nil
}

func parseComponents(data json.RawMessage) (map[string]schema.Quantity, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []rawComponent
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("invalid exposure_components list: %w", err)
		}
		out := make(map[string]schema.Quantity, len(list))
		for _, c := range list {
			if c.Name == "" {
				return nil, fmt.Errorf("exposure component without name")
			}
			out[c.Name] = schema.Quantity{Value: c.Value, Unit: c.Unit}
		}
		return out, nil
	}
	var m map[string]schema.Quantity
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid exposure_components map: %w", err)
	}
	return m, nil
}

// tagsFromNotes extracts tags from a "Context tags: a, b" notes line.
func tagsFromNotes(notes string) []string {
	var tags []string
	for _, line := range strings.Split(notes, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), contextTagsPrefix)
		if !ok {
			continue
		}
		for _, t := range strings.Split(rest, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// mergeTags normalizes tags to lower_snake and removes duplicates, keeping first-seen order.
func mergeTags(lists ...[]string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, t := range list {
			norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t)), " ", "_")
			if norm == "" {
				continue
			}
			if _, ok := seen[norm]; ok {
				continue
			}
			seen[norm] = struct{}{}
			out = append(out, norm)
		}
	}
	return out
}
