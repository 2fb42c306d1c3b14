package schema

import "time"

// Signal trigger bases.
const (
	BasisAbsolute = "absolute"
	BasisPersonal = "personal"
)

// SignalPeakGlucose is the absolute peak value read from the delta_peak summary.
const SignalPeakGlucose MetricName = "peak_glucose"

// SignalTrigger explains one reason an event signal left green.
type SignalTrigger struct {
	Metric     MetricName   `json:"metric"`
	Value      float64      `json:"value"`
	Threshold  float64      `json:"threshold"`
	Comparison string       `json:"comparison"`
	Basis      string       `json:"basis"`
	Severity   SignalStatus `json:"severity"`
	Message    string       `json:"message"`
}

// EventSignal is the per-event traffic-light summary of a response.
type EventSignal struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	StartTime     time.Time              `json:"start_time"`
	Status        SignalStatus           `json:"status"`
	CoverageRatio *float64               `json:"coverage_ratio"`
	MetricValues  map[MetricName]float64 `json:"metric_values"`
	Triggers      []SignalTrigger        `json:"triggers"`
	Reasons       []string               `json:"reasons,omitempty"`
	HistoryCount  int                    `json:"history_count"`
}
