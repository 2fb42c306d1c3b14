package contract

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"

	"github.com/huangsam/cgmlens/schema"
)

// Default values for configuration.
const (
	DefaultPrecision = 1
	MaxPrecision     = 4
)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// EngineRawInput holds engine threshold overrides from the YAML config file.
// Pointer fields distinguish "not set" from zero.
type EngineRawInput struct {
	CoverageWarnThreshold       *float64 `mapstructure:"coverage_warn_threshold"`
	CoverageFailThreshold       *float64 `mapstructure:"coverage_fail_threshold"`
	JumpArtifactThreshold       *float64 `mapstructure:"jump_artifact_threshold"`
	ReversalFraction            *float64 `mapstructure:"reversal_fraction"`
	FlatlineRunLength           *int     `mapstructure:"flatline_run_length"`
	IntervalTolerance           *float64 `mapstructure:"interval_tolerance"`
	RegularityCV                *float64 `mapstructure:"regularity_cv"`
	MissingIntervalFactor       *float64 `mapstructure:"missing_interval_factor"`
	LargeGapMinutes             *float64 `mapstructure:"large_gap_minutes"`
	ExtremeLow                  *float64 `mapstructure:"extreme_low"`
	ExtremeHigh                 *float64 `mapstructure:"extreme_high"`
	MinDescriptiveEvents        *int     `mapstructure:"min_descriptive_events"`
	MinComputableFraction       *float64 `mapstructure:"min_computable_fraction"`
	MinIsolationMinutes         *float64 `mapstructure:"min_isolation_minutes"`
	DefaultEventDurationMinutes *float64 `mapstructure:"default_event_duration_minutes"`
	MinAnnotationQuality        *float64 `mapstructure:"min_annotation_quality"`
	TimingUncertaintyMinutes    *float64 `mapstructure:"timing_uncertainty_minutes"`
	SignalHistorySize           *int     `mapstructure:"signal_history_size"`
	SignalMinHistory            *int     `mapstructure:"signal_min_history"`
	SignalCoverageSoft          *float64 `mapstructure:"signal_coverage_soft"`
}

// WeightsRawInput holds custom confidence weights from the YAML config file.
type WeightsRawInput struct {
	DataCompleteness       *float64 `mapstructure:"data_completeness"`
	MethodologyReliability *float64 `mapstructure:"methodology_reliability"`
	ConfoundControl        *float64 `mapstructure:"confound_control"`
	TimingAccuracy         *float64 `mapstructure:"timing_accuracy"`
}

// Config holds the runtime configuration for the CLI.
// This struct remains the "final, validated" config.
type Config struct {
	SeriesPath   string
	EventsPath   string
	QuestionPath string

	Engine schema.EngineConfig

	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool
	Workers    int // Concurrent question evaluations

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Series           string `mapstructure:"series"`
	Events           string `mapstructure:"events"`
	Question         string `mapstructure:"question"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Precision        int    `mapstructure:"precision"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	Unit             string `mapstructure:"unit"`
	BaselineWindow   string `mapstructure:"baseline-window"`
	ResponseWindow   string `mapstructure:"response-window"`
	MinEvents        int    `mapstructure:"min-events"`
	Workers          int    `mapstructure:"workers"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Engine thresholds from config file ---
	Engine EngineRawInput `mapstructure:"engine"`

	// --- Confidence weights from config file ---
	Weights WeightsRawInput `mapstructure:"weights"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processEngineConfig(cfg, input); err != nil {
		return err
	}
	if err := processWeights(cfg, input); err != nil {
		return err
	}
	return validateEngineConfig(cfg.Engine)
}

// RevalidateEngine applies per-request window and event-count overrides to an
// already processed config, then re-checks the engine thresholds.
func RevalidateEngine(cfg *Config, baselineWindow, responseWindow string, minEvents int) error {
	if baselineWindow != "" {
		w, err := ParseWindow(baselineWindow)
		if err != nil {
			return fmt.Errorf("invalid baseline window: %w", err)
		}
		cfg.Engine.BaselineWindow = w
	}
	if responseWindow != "" {
		w, err := ParseWindow(responseWindow)
		if err != nil {
			return fmt.Errorf("invalid response window: %w", err)
		}
		cfg.Engine.ResponseWindow = w
	}
	if minEvents < 0 {
		return fmt.Errorf("min-events must be positive (received %d)", minEvents)
	}
	if minEvents > 0 {
		cfg.Engine.MinQualifyingEvents = minEvents
	}
	return validateEngineConfig(cfg.Engine)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the flag-level fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.SeriesPath = strings.TrimSpace(input.Series)
	cfg.EventsPath = strings.TrimSpace(input.Events)
	cfg.QuestionPath = strings.TrimSpace(input.Question)
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Precision < 0 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 0 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	if input.Workers < 0 {
		return fmt.Errorf("workers must be positive (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	return validateBackendConfigs(cfg, input)
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		cfg.HistoryBackend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("history: %w", err)
	}

	// Cache and history must not share one SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		historyPath := cfg.HistoryDBConnect
		if historyPath == "" {
			historyPath = GetHistoryDBFilePath()
		}
		if cachePath == historyPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}
	return nil
}

// processEngineConfig starts from the unit defaults and applies the window flags and the
// engine block of the config file.
func processEngineConfig(cfg *Config, input *ConfigRawInput) error {
	unit := schema.GlucoseUnit(input.Unit)
	if unit == "" {
		unit = schema.UnitMgDL
	}
	if strings.EqualFold(string(unit), "mmol") || strings.EqualFold(string(unit), string(schema.UnitMmolL)) {
		unit = schema.UnitMmolL
	}
	if strings.EqualFold(string(unit), string(schema.UnitMgDL)) {
		unit = schema.UnitMgDL
	}
	if _, ok := schema.ValidGlucoseUnits[unit]; !ok {
		return fmt.Errorf("invalid unit '%s'. must be mg/dL or mmol/L", input.Unit)
	}
	eng := schema.DefaultEngineConfig(unit)

	if input.BaselineWindow != "" {
		w, err := ParseWindow(input.BaselineWindow)
		if err != nil {
			return fmt.Errorf("invalid --baseline-window: %w", err)
		}
		eng.BaselineWindow = w
	}
	if input.ResponseWindow != "" {
		w, err := ParseWindow(input.ResponseWindow)
		if err != nil {
			return fmt.Errorf("invalid --response-window: %w", err)
		}
		eng.ResponseWindow = w
	}
	if input.MinEvents < 0 {
		return fmt.Errorf("min-events must be positive (received %d)", input.MinEvents)
	}
	if input.MinEvents > 0 {
		eng.MinQualifyingEvents = input.MinEvents
	}

	raw := input.Engine
	setFloat(&eng.CoverageWarnThreshold, raw.CoverageWarnThreshold)
	setFloat(&eng.CoverageFailThreshold, raw.CoverageFailThreshold)
	setFloat(&eng.JumpArtifactThreshold, raw.JumpArtifactThreshold)
	setFloat(&eng.ReversalFraction, raw.ReversalFraction)
	setInt(&eng.FlatlineRunLength, raw.FlatlineRunLength)
	setFloat(&eng.IntervalTolerance, raw.IntervalTolerance)
	setFloat(&eng.RegularityCV, raw.RegularityCV)
	setFloat(&eng.MissingIntervalFactor, raw.MissingIntervalFactor)
	setFloat(&eng.LargeGapMinutes, raw.LargeGapMinutes)
	setFloat(&eng.ExtremeLow, raw.ExtremeLow)
	setFloat(&eng.ExtremeHigh, raw.ExtremeHigh)
	setInt(&eng.MinDescriptiveEvents, raw.MinDescriptiveEvents)
	setFloat(&eng.MinComputableFraction, raw.MinComputableFraction)
	setFloat(&eng.MinIsolationMinutes, raw.MinIsolationMinutes)
	setFloat(&eng.DefaultEventDurationMinutes, raw.DefaultEventDurationMinutes)
	setFloat(&eng.MinAnnotationQuality, raw.MinAnnotationQuality)
	setFloat(&eng.TimingUncertaintyMinutes, raw.TimingUncertaintyMinutes)
	setInt(&eng.SignalHistorySize, raw.SignalHistorySize)
	setInt(&eng.SignalMinHistory, raw.SignalMinHistory)
	setFloat(&eng.SignalCoverageSoft, raw.SignalCoverageSoft)

	cfg.Engine = eng
	return nil
}

// processWeights applies custom confidence weights. A partial override is allowed as long
// as the resulting four weights still sum to 1.0.
func processWeights(cfg *Config, input *ConfigRawInput) error {
	w := cfg.Engine.ConfidenceWeights
	raw := input.Weights
	setFloat(&w.DataCompleteness, raw.DataCompleteness)
	setFloat(&w.MethodologyReliability, raw.MethodologyReliability)
	setFloat(&w.ConfoundControl, raw.ConfoundControl)
	setFloat(&w.TimingAccuracy, raw.TimingAccuracy)

	for name, v := range map[string]float64{
		"data_completeness":       w.DataCompleteness,
		"methodology_reliability": w.MethodologyReliability,
		"confound_control":        w.ConfoundControl,
		"timing_accuracy":         w.TimingAccuracy,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("weight %s must be between 0 and 1 (received %.3f)", name, v)
		}
	}
	if sum := w.Sum(); sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("confidence weights must sum to 1.0 (received %.3f)", sum)
	}
	cfg.Engine.ConfidenceWeights = w
	return nil
}

// validateEngineConfig checks threshold ranges after all overrides are applied.
func validateEngineConfig(eng schema.EngineConfig) error {
	if eng.CoverageFailThreshold <= 0 || eng.CoverageFailThreshold > eng.CoverageWarnThreshold || eng.CoverageWarnThreshold > 1 {
		return fmt.Errorf("coverage thresholds must satisfy 0 < fail (%.2f) <= warn (%.2f) <= 1", eng.CoverageFailThreshold, eng.CoverageWarnThreshold)
	}
	if eng.FlatlineRunLength < 2 {
		return fmt.Errorf("flatline_run_length must be at least 2 (received %d)", eng.FlatlineRunLength)
	}
	if eng.JumpArtifactThreshold <= 0 {
		return fmt.Errorf("jump_artifact_threshold must be positive (received %.2f)", eng.JumpArtifactThreshold)
	}
	if eng.ReversalFraction <= 0 || eng.ReversalFraction > 1 {
		return fmt.Errorf("reversal_fraction must be in (0, 1] (received %.2f)", eng.ReversalFraction)
	}
	if eng.ExtremeLow >= eng.ExtremeHigh {
		return fmt.Errorf("extreme_low (%.1f) must be below extreme_high (%.1f)", eng.ExtremeLow, eng.ExtremeHigh)
	}
	if eng.MinDescriptiveEvents < 1 || eng.MinQualifyingEvents < 1 {
		return fmt.Errorf("minimum event counts must be at least 1")
	}
	if eng.MinComputableFraction < 0 || eng.MinComputableFraction > 1 {
		return fmt.Errorf("min_computable_fraction must be between 0 and 1 (received %.2f)", eng.MinComputableFraction)
	}
	if eng.SignalHistorySize < eng.SignalMinHistory {
		return fmt.Errorf("signal_history_size (%d) must be at least signal_min_history (%d)", eng.SignalHistorySize, eng.SignalMinHistory)
	}
	return nil
}

// ParseWindow parses a window like "-30,0" into minute offsets.
func ParseWindow(s string) (schema.WindowSpec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return schema.WindowSpec{}, fmt.Errorf("window %q must be two comma-separated minute offsets like -30,0", s)
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return schema.WindowSpec{}, fmt.Errorf("window start %q: %w", parts[0], err)
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return schema.WindowSpec{}, fmt.Errorf("window end %q: %w", parts[1], err)
	}
	if math.IsNaN(start) || math.IsNaN(end) || end < start {
		return schema.WindowSpec{}, fmt.Errorf("window end %.0f precedes start %.0f", end, start)
	}
	return schema.WindowSpec{StartOffsetMinutes: start, EndOffsetMinutes: end}, nil
}

// ProcessProfilingConfig enables profiling when a file prefix is given.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
