package schema

// ConfidenceWeights are the four sub-score weights of the confidence score.
type ConfidenceWeights struct {
	DataCompleteness       float64 `json:"data_completeness" mapstructure:"data_completeness"`
	MethodologyReliability float64 `json:"methodology_reliability" mapstructure:"methodology_reliability"`
	ConfoundControl        float64 `json:"confound_control" mapstructure:"confound_control"`
	TimingAccuracy         float64 `json:"timing_accuracy" mapstructure:"timing_accuracy"`
}

// Sum returns the total of all weights.
func (w ConfidenceWeights) Sum() float64 {
	return w.DataCompleteness + w.MethodologyReliability + w.ConfoundControl + w.TimingAccuracy
}

// DefaultConfidenceWeights returns the standard 0.4/0.3/0.2/0.1 weighting.
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{
		DataCompleteness:       0.4,
		MethodologyReliability: 0.3,
		ConfoundControl:        0.2,
		TimingAccuracy:         0.1,
	}
}

// EngineConfig carries every threshold, window default and weight the engine uses.
// It is passed explicitly; the engine holds no package-level defaults.
type EngineConfig struct {
	Unit GlucoseUnit

	BaselineWindow WindowSpec
	ResponseWindow WindowSpec

	CoverageWarnThreshold float64
	CoverageFailThreshold float64

	JumpArtifactThreshold float64
	ReversalFraction      float64
	FlatlineRunLength     int
	IntervalTolerance     float64
	RegularityCV          float64
	MissingIntervalFactor float64
	LargeGapMinutes       float64
	ExtremeLow            float64
	ExtremeHigh           float64

	MinQualifyingEvents         int
	MinDescriptiveEvents        int
	MinComputableFraction       float64
	MinIsolationMinutes         float64
	DefaultEventDurationMinutes float64
	MinAnnotationQuality        float64
	TimingUncertaintyMinutes    float64

	ConfidenceWeights ConfidenceWeights

	SignalHistorySize   int
	SignalMinHistory    int
	SignalCoverageSoft  float64
	SignalPeakHighLimit float64
	SignalNadirLowLimit float64
}

// DefaultEngineConfig returns a fresh configuration with unit-aware thresholds.
func DefaultEngineConfig(unit GlucoseUnit) EngineConfig {
	cfg := EngineConfig{
		Unit:                        UnitMgDL,
		BaselineWindow:              WindowSpec{StartOffsetMinutes: -30, EndOffsetMinutes: 0},
		ResponseWindow:              WindowSpec{StartOffsetMinutes: 0, EndOffsetMinutes: 180},
		CoverageWarnThreshold:       0.7,
		CoverageFailThreshold:       0.5,
		JumpArtifactThreshold:       36,
		ReversalFraction:            0.5,
		FlatlineRunLength:           3,
		IntervalTolerance:           0.5,
		RegularityCV:                0.15,
		MissingIntervalFactor:       1.5,
		LargeGapMinutes:             30,
		ExtremeLow:                  40,
		ExtremeHigh:                 400,
		MinQualifyingEvents:         10,
		MinDescriptiveEvents:        1,
		MinComputableFraction:       0.8,
		MinIsolationMinutes:         30,
		DefaultEventDurationMinutes: 30,
		MinAnnotationQuality:        0.5,
		TimingUncertaintyMinutes:    60,
		ConfidenceWeights:           DefaultConfidenceWeights(),
		SignalHistorySize:           30,
		SignalMinHistory:            10,
		SignalCoverageSoft:          0.85,
		SignalPeakHighLimit:         7.8 * MgDLPerMmolL,
		SignalNadirLowLimit:         3.9 * MgDLPerMmolL,
	}
	if unit == UnitMmolL {
		cfg.Unit = UnitMmolL
		cfg.JumpArtifactThreshold = 2.0
		cfg.ExtremeLow = 2.2
		cfg.ExtremeHigh = 22.2
		cfg.SignalPeakHighLimit = 7.8
		cfg.SignalNadirLowLimit = 3.9
	}
	return cfg
}
