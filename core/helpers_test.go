package core

import (
	"time"

	"github.com/huangsam/cgmlens/schema"
)

var testAnchor = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

// at returns the anchor shifted by minutes.
func at(minutes float64) time.Time {
	return offset(testAnchor, minutes)
}

// gridSamples places values every step minutes starting at startMinute from the anchor.
func gridSamples(startMinute, step float64, values ...float64) []schema.Sample {
	samples := make([]schema.Sample, len(values))
	for i, v := range values {
		samples[i] = schema.Sample{Timestamp: at(startMinute + float64(i)*step), Value: v}
	}
	return samples
}

// mealResponseSamples is a 5-minute series around an event at the anchor: baseline 96,
// a peak of 170 at minute 22 and a return to about 110 by minute 87.
func mealResponseSamples() []schema.Sample {
	values := []float64{96, 97, 95, 97, 96, 95, 97, 96} // -38 .. -3
	values = append(values, 100, 118, 136, 154, 170)    // 2 .. 22
	for m := 27.0; m <= 87; m += 5 {
		values = append(values, 170-(m-22)*60/65)
	}
	tail := []float64{109, 111, 110}
	for i := 0; len(values) < 44; i++ { // 92 .. 177
		values = append(values, tail[i%len(tail)])
	}
	return gridSamples(-38, 5, values...)
}

func testEngineConfig() schema.EngineConfig {
	return schema.DefaultEngineConfig(schema.UnitMgDL)
}

func mealEvent(id string, startMinute float64) schema.Event {
	return schema.Event{
		ID:                id,
		Type:              "meal",
		Label:             "oatmeal",
		StartTime:         at(startMinute),
		AnnotationQuality: 0.9,
		Components: map[string]schema.Quantity{
			"carbs": {Value: 45.0, Unit: "g"},
		},
	}
}

func ptr(v float64) *float64 { return &v }
