package schema

import "time"

// MetricsReport is the per-event metric output for one series.
type MetricsReport struct {
	RunID           string         `json:"run_id,omitempty"`
	SeriesID        string         `json:"series_id"`
	Unit            GlucoseUnit    `json:"unit"`
	IntervalMinutes *float64       `json:"interval_minutes"`
	Events          []EventMetrics `json:"events"`
}

// SignalsReport is the per-event signal output for one series.
type SignalsReport struct {
	SeriesID string        `json:"series_id"`
	Unit     GlucoseUnit   `json:"unit"`
	Signals  []EventSignal `json:"signals"`
}

// FormulaDefinition describes how one metric is computed.
type FormulaDefinition struct {
	Name    MetricName `json:"name"`
	Unit    string     `json:"unit"`
	Window  string     `json:"window"`
	Formula string     `json:"formula"`
}

// FormulaComponent describes one weighted confidence sub-score.
type FormulaComponent struct {
	Name    string  `json:"name"`
	Weight  float64 `json:"weight"`
	Formula string  `json:"formula"`
}

// FormulasRenderModel is everything the formulas command renders.
type FormulasRenderModel struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Metrics     []FormulaDefinition `json:"metrics"`
	Confidence  []FormulaComponent  `json:"confidence"`
	StatusRules []string            `json:"status_rules"`
}

// RunSummary is a short record of a finished run for console footers.
type RunSummary struct {
	RunID    string
	Duration time.Duration
	Backend  DatabaseBackend
}
