// Package core has the engine: windows, signal quality, metrics, answerability and signals.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/internal/loader"
	"github.com/huangsam/cgmlens/internal/outwriter"
	"github.com/huangsam/cgmlens/schema"
)

// ExecutorFunc defines the function signature for executing different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// inputs are the files one command reads.
type inputs struct {
	series    schema.Series
	events    schema.EventSet
	questions []schema.QuestionSpec
}

// loadInputs reads the series and, when requested, the events and question files.
func loadInputs(cfg *contract.Config, withEvents, withQuestions bool) (*inputs, error) {
	if cfg.SeriesPath == "" {
		return nil, errors.New("--series is required")
	}
	in := &inputs{}
	series, err := loader.LoadSeries(cfg.SeriesPath, cfg.Engine.Unit)
	if err != nil {
		return nil, err
	}
	in.series = series

	if withEvents {
		if cfg.EventsPath == "" {
			return nil, errors.New("--events is required")
		}
		if in.events, err = loader.LoadEvents(cfg.EventsPath); err != nil {
			return nil, err
		}
	}
	if withQuestions {
		if cfg.QuestionPath == "" {
			return nil, errors.New("--question is required")
		}
		if in.questions, err = loader.LoadQuestions(cfg.QuestionPath); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// newBuilder prints the run header and starts a builder for the loaded inputs.
func newBuilder(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, in *inputs) *EvaluationBuilder {
	if !shouldSuppressHeader(ctx) && !streamsData(cfg) {
		outwriter.LogRunHeader(cfg, in.series, len(in.events.Events), len(in.questions))
	}
	return NewEvaluationBuilder(ctx, cfg, mgr, in.series, in.events, in.questions)
}

// streamsData reports whether machine-readable output goes to stdout, where a header would corrupt it.
func streamsData(cfg *contract.Config) bool {
	return cfg.OutputFile == "" && (cfg.Output == schema.JSONOut || cfg.Output == schema.CSVOut)
}

// GetQualityResults analyzes the signal quality of the configured series.
func GetQualityResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*schema.SignalQuality, time.Duration, error) {
	start := time.Now()
	in, err := loadInputs(cfg, false, false)
	if err != nil {
		return nil, 0, err
	}
	b, err := newBuilder(ctx, cfg, mgr, in).ValidateInputs()
	if err != nil {
		return nil, 0, err
	}
	if b, err = b.AnalyzeSignal(); err != nil {
		return nil, 0, err
	}
	quality := b.Quality()
	return &quality, time.Since(start), nil
}

// GetMetricsResults computes all event metrics and records them to the history store.
func GetMetricsResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*schema.MetricsReport, time.Duration, error) {
	start := time.Now()
	in, err := loadInputs(cfg, true, false)
	if err != nil {
		return nil, 0, err
	}
	b, err := runMetricsStages(ctx, cfg, mgr, in)
	if err != nil {
		return nil, 0, err
	}

	tracker := beginRun(mgr, b.RunUUID(), in.series.SeriesID, runConfigParams(cfg, "metrics"))
	report := b.MetricsReport()
	tracker.recordMetrics(report.Events)
	tracker.end(len(in.events.Events), 0)

	return report, time.Since(start), nil
}

// GetSignalsResults computes per-event signals for the configured series and events.
func GetSignalsResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*schema.SignalsReport, time.Duration, error) {
	start := time.Now()
	in, err := loadInputs(cfg, true, false)
	if err != nil {
		return nil, 0, err
	}
	b, err := runMetricsStages(ctx, cfg, mgr, in)
	if err != nil {
		return nil, 0, err
	}
	return b.ComputeSignals().SignalsReport(), time.Since(start), nil
}

// GetEvaluationResults runs the full pipeline and decides answerability for every question.
func GetEvaluationResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*schema.EvaluationReport, time.Duration, error) {
	start := time.Now()
	in, err := loadInputs(cfg, true, true)
	if err != nil {
		return nil, 0, err
	}
	b, err := runMetricsStages(ctx, cfg, mgr, in)
	if err != nil {
		return nil, 0, err
	}

	tracker := beginRun(mgr, b.RunUUID(), in.series.SeriesID, runConfigParams(cfg, "evaluate"))
	if b, err = b.EvaluateQuestions(); err != nil {
		return nil, 0, err
	}
	report := b.BuildResult().GetResult()

	tracker.recordMetrics(b.metrics)
	tracker.recordVerdicts(report.Outcomes)
	tracker.end(len(in.events.Events), len(in.questions))

	return report, time.Since(start), nil
}

// runMetricsStages runs validation, quality analysis and metric computation.
func runMetricsStages(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, in *inputs) (*EvaluationBuilder, error) {
	b, err := newBuilder(ctx, cfg, mgr, in).ValidateInputs()
	if err != nil {
		return nil, err
	}
	if b, err = b.AnalyzeSignal(); err != nil {
		return nil, err
	}
	return b.ComputeMetrics()
}

// ExecuteQuality runs the signal quality analysis and prints the report.
func ExecuteQuality(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	quality, duration, err := GetQualityResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteQuality(*quality, cfg, duration)
}

// ExecuteMetrics computes event metrics and prints them.
func ExecuteMetrics(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	report, duration, err := GetMetricsResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteMetrics(*report, cfg, duration)
}

// ExecuteSignals computes per-event signals and prints them.
func ExecuteSignals(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	report, duration, err := GetSignalsResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteSignals(*report, cfg, duration)
}

// ExecuteEvaluate evaluates every question and prints the verdicts.
func ExecuteEvaluate(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	report, duration, err := GetEvaluationResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.WriteEvaluation(*report, cfg, duration)
}

// ExecuteFormulas displays the formal definitions of all metrics and the confidence score.
// This is a static display that does not read any input.
func ExecuteFormulas(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	return outwriter.WriteFormulas(BuildFormulasModel(cfg.Engine), cfg)
}
