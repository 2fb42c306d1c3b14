package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/schema"
)

// EvaluationBuilder runs the engine stages over one series using a builder pattern.
// Each command stops after the stage it needs.
type EvaluationBuilder struct {
	ctx       context.Context
	cfg       *contract.Config
	mgr       contract.CacheManager
	series    schema.Series
	events    schema.EventSet
	questions []schema.QuestionSpec

	runUUID  string
	samples  []schema.Sample
	quality  schema.SignalQuality
	interval *float64
	metrics  []schema.EventMetrics
	signals  []schema.EventSignal
	outcomes []schema.QuestionOutcome
	result   *schema.EvaluationReport
}

// NewEvaluationBuilder creates a new builder for one series and its annotations.
func NewEvaluationBuilder(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, series schema.Series, events schema.EventSet, questions []schema.QuestionSpec) *EvaluationBuilder {
	return &EvaluationBuilder{
		ctx:       ctx,
		cfg:       cfg,
		mgr:       mgr,
		series:    series,
		events:    events,
		questions: questions,
		runUUID:   uuid.NewString(),
	}
}

// ValidateInputs checks the sample sequence before any stage runs.
func (b *EvaluationBuilder) ValidateInputs() (*EvaluationBuilder, error) {
	if len(b.series.Samples) == 0 {
		return nil, fmt.Errorf("series %q has no samples. Provide a CGM export with at least two readings", b.series.SeriesID)
	}
	if err := ValidateSamples(b.series.Samples); err != nil {
		return nil, fmt.Errorf("series %q: %w", b.series.SeriesID, err)
	}
	return b, nil
}

// AnalyzeSignal summarizes signal quality and marks flat-line artifacts on the samples.
func (b *EvaluationBuilder) AnalyzeSignal() (*EvaluationBuilder, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}
	quality, err := cachedAnalyzeSignal(b.mgr, b.series, b.cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("signal quality analysis failed: %w", err)
	}
	quality.SeriesID = b.series.SeriesID
	b.quality = quality
	b.samples = AnnotateArtifacts(b.series.Samples, quality)
	b.interval = resolveInterval(b.series, quality)
	return b, nil
}

// ComputeMetrics runs every metric calculator for every event.
func (b *EvaluationBuilder) ComputeMetrics() (*EvaluationBuilder, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}
	metrics, err := ComputeAllMetrics(b.samples, b.events.Events, b.interval, b.cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("metric computation failed: %w", err)
	}
	b.metrics = metrics
	return b, nil
}

// ComputeSignals derives per-event traffic-light signals from the metrics.
func (b *EvaluationBuilder) ComputeSignals() *EvaluationBuilder {
	b.signals = ComputeEventSignals(b.metrics, b.cfg.Engine)
	return b
}

// EvaluateQuestions decides answerability for each question. A failing question yields
// an outcome with its error and never stops the others.
func (b *EvaluationBuilder) EvaluateQuestions() (*EvaluationBuilder, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}
	b.outcomes = evaluateConcurrently(b.questions, b.cfg.Workers, func(q schema.QuestionSpec) schema.QuestionOutcome {
		return EvaluateAll([]schema.QuestionSpec{q}, b.events, b.metrics, b.quality, b.cfg.Engine)[0]
	})
	return b, nil
}

// evaluateConcurrently runs eval over questions with a pool of workers.
// Outcomes keep the order of the questions.
func evaluateConcurrently(questions []schema.QuestionSpec, workers int, eval func(schema.QuestionSpec) schema.QuestionOutcome) []schema.QuestionOutcome {
	outcomes := make([]schema.QuestionOutcome, len(questions))
	if len(questions) == 0 {
		return outcomes
	}
	workers = max(1, min(workers, len(questions)))

	indexCh := make(chan int, len(questions))
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for i := range indexCh {
				// each worker writes to a unique index
				outcomes[i] = eval(questions[i])
			}
		})
	}

	for i := range questions {
		indexCh <- i
	}
	close(indexCh)
	wg.Wait()

	return outcomes
}

// BuildResult constructs the final EvaluationReport.
func (b *EvaluationBuilder) BuildResult() *EvaluationBuilder {
	b.result = &schema.EvaluationReport{
		RunID:       b.runUUID,
		EvaluatedAt: time.Now().UTC(),
		SeriesID:    b.series.SeriesID,
		Quality:     b.quality,
		Outcomes:    b.outcomes,
	}
	return b
}

// GetResult returns the built EvaluationReport.
func (b *EvaluationBuilder) GetResult() *schema.EvaluationReport {
	return b.result
}

// Quality returns the signal quality report.
func (b *EvaluationBuilder) Quality() schema.SignalQuality {
	return b.quality
}

// MetricsReport returns the per-event metrics computed so far.
func (b *EvaluationBuilder) MetricsReport() *schema.MetricsReport {
	return &schema.MetricsReport{
		RunID:           b.runUUID,
		SeriesID:        b.series.SeriesID,
		Unit:            b.cfg.Engine.Unit,
		IntervalMinutes: b.interval,
		Events:          b.metrics,
	}
}

// SignalsReport returns the per-event signals computed so far.
func (b *EvaluationBuilder) SignalsReport() *schema.SignalsReport {
	return &schema.SignalsReport{
		SeriesID: b.series.SeriesID,
		Unit:     b.cfg.Engine.Unit,
		Signals:  b.signals,
	}
}

// RunUUID returns the identifier of this run.
func (b *EvaluationBuilder) RunUUID() string {
	return b.runUUID
}

// resolveInterval returns the sampling interval windows are measured against. It is nil
// whenever the analyzer could not estimate one; a declared interval only replaces an
// existing estimate.
func resolveInterval(series schema.Series, quality schema.SignalQuality) *float64 {
	if quality.MeanIntervalMinutes == nil {
		return nil
	}
	if series.IntervalMinutes != nil && *series.IntervalMinutes > 0 {
		return schema.Float64Ptr(*series.IntervalMinutes)
	}
	return schema.Float64Ptr(*quality.MeanIntervalMinutes)
}
