package schema

// Custom string types for type safety.
type (
	// QualityFlag marks a sample or metric with a data-quality condition.
	QualityFlag string

	// MetricName identifies one windowed response metric.
	MetricName string

	// VerdictStatus is the terminal state of an answerability evaluation.
	VerdictStatus string

	// CheckOutcome is the result of a single checklist item.
	CheckOutcome string

	// CheckCategory groups checklist items.
	CheckCategory string

	// QuestionKind distinguishes descriptive from comparative questions.
	QuestionKind string

	// CounterfactualKind describes what the exposure is compared against.
	CounterfactualKind string

	// Operator is a selector comparison operator.
	Operator string

	// ConditionType names an inclusion criterion.
	ConditionType string

	// SignalStatus is the traffic-light status of an event signal.
	SignalStatus string

	// GlucoseUnit is the unit of glucose values.
	GlucoseUnit string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching and history.
	DatabaseBackend string
)

// Sample and metric quality flags.
const (
	FlagSensorError          QualityFlag = "sensor_error"
	FlagArtifact             QualityFlag = "artifact"
	FlagLowCoverage          QualityFlag = "low_coverage"
	FlagInsufficientCoverage QualityFlag = "insufficient_coverage"
	FlagInsufficientData     QualityFlag = "insufficient_data"
	FlagMissingData          QualityFlag = "missing_data"
	FlagArtifactInWindow     QualityFlag = "artifact_in_window"
)

// Metric names produced by the calculators.
const (
	MetricBaseline      MetricName = "baseline_glucose"
	MetricDeltaPeak     MetricName = "delta_peak"
	MetricIAUC          MetricName = "iAUC"
	MetricTimeToPeak    MetricName = "time_to_peak"
	MetricRecoverySlope MetricName = "recovery_slope"
	MetricNadir         MetricName = "nadir_glucose"
)

// All verdict statuses.
const (
	StatusAnswerable   VerdictStatus = "answerable"
	StatusPartial      VerdictStatus = "partial"
	StatusUnanswerable VerdictStatus = "unanswerable"
	StatusUnknown      VerdictStatus = "unknown"
)

// All check outcomes.
const (
	CheckPassed        CheckOutcome = "passed"
	CheckFailed        CheckOutcome = "failed"
	CheckIndeterminate CheckOutcome = "indeterminate"
)

// Check categories.
const (
	CategoryDataAvailability CheckCategory = "data_availability"
	CategoryMethodology      CheckCategory = "methodology"
)

// Question kinds.
const (
	KindDescriptive QuestionKind = "descriptive"
	KindComparative QuestionKind = "comparative"
)

// Counterfactual kinds.
const (
	CounterfactualComparisonEvents CounterfactualKind = "comparison_events"
	CounterfactualPreEventBaseline CounterfactualKind = "pre_event_baseline"
	CounterfactualNone             CounterfactualKind = "none"
)

// Selector operators.
const (
	OpEqual        Operator = "="
	OpLess         Operator = "<"
	OpGreater      Operator = ">"
	OpLessEqual    Operator = "<="
	OpGreaterEqual Operator = ">="
	OpBetween      Operator = "between"
	OpIn           Operator = "in"
	OpExists       Operator = "exists"
)

// Inclusion criterion types.
const (
	ConditionContextTag ConditionType = "context_tag"
	ConditionTimeOfDay  ConditionType = "time_of_day"
	ConditionComponent  ConditionType = "component"
)

// Event signal statuses.
const (
	SignalRed    SignalStatus = "red"
	SignalYellow SignalStatus = "yellow"
	SignalGreen  SignalStatus = "green"
	SignalGray   SignalStatus = "gray"
)

// Glucose units.
const (
	UnitMgDL  GlucoseUnit = "mg/dL" // default
	UnitMmolL GlucoseUnit = "mmol/L"
)

// MgDLPerMmolL converts mmol/L to mg/dL.
const MgDLPerMmolL = 18.0

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// AllVerdictStatuses lists every status literal in precedence order.
var AllVerdictStatuses = []VerdictStatus{StatusUnanswerable, StatusAnswerable, StatusPartial, StatusUnknown}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidGlucoseUnits lists all valid glucose units.
var ValidGlucoseUnits = map[GlucoseUnit]struct{}{
	UnitMgDL:  {},
	UnitMmolL: {},
}

// ValidOperators lists all valid selector operators.
var ValidOperators = map[Operator]struct{}{
	OpEqual:        {},
	OpLess:         {},
	OpGreater:      {},
	OpLessEqual:    {},
	OpGreaterEqual: {},
	OpBetween:      {},
	OpIn:           {},
	OpExists:       {},
}

// ValidMetricNames lists all metric names the calculators emit.
var ValidMetricNames = map[MetricName]struct{}{
	MetricBaseline:      {},
	MetricDeltaPeak:     {},
	MetricIAUC:          {},
	MetricTimeToPeak:    {},
	MetricRecoverySlope: {},
	MetricNadir:         {},
}
