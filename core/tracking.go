package core

import (
	"fmt"
	"time"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/schema"
)

// runTracker persists one run to the history store. A nil tracker records nothing.
type runTracker struct {
	store contract.HistoryStore
	runID int64
}

// beginRun opens a history run when a history store is configured.
// Tracking failures are reported as warnings and never stop the run.
func beginRun(mgr contract.CacheManager, runUUID, seriesID string, configParams map[string]any) *runTracker {
	if mgr == nil {
		return nil
	}
	store := mgr.GetHistoryStore()
	if store == nil {
		return nil
	}
	runID, err := store.BeginRun(runUUID, seriesID, time.Now(), configParams)
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return nil
	}
	if runID <= 0 {
		return nil
	}
	return &runTracker{store: store, runID: runID}
}

// recordMetrics stores every computed metric of the run.
func (t *runTracker) recordMetrics(events []schema.EventMetrics) {
	if t == nil {
		return
	}
	for _, em := range events {
		for _, m := range em.Metrics {
			if err := t.store.RecordMetric(t.runID, m); err != nil {
				logTrackingError("RecordMetric", fmt.Sprintf("%s/%s", m.EventID, m.Name), err)
			}
		}
	}
}

// recordVerdicts stores every verdict of the run. Failed questions have no verdict.
func (t *runTracker) recordVerdicts(outcomes []schema.QuestionOutcome) {
	if t == nil {
		return
	}
	for _, o := range outcomes {
		if o.Verdict == nil {
			continue
		}
		if err := t.store.RecordVerdict(t.runID, *o.Verdict); err != nil {
			logTrackingError("RecordVerdict", o.QuestionID, err)
		}
	}
}

// end finalizes the run with its totals.
func (t *runTracker) end(totalEvents, totalQuestions int) {
	if t == nil {
		return
	}
	if err := t.store.EndRun(t.runID, time.Now(), totalEvents, totalQuestions); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}

// logTrackingError logs history tracking errors to stderr without disrupting the run.
func logTrackingError(operation, target string, err error) {
	contract.LogWarn(fmt.Sprintf("Run tracking failed for %s on %s", operation, target), err)
}

// runConfigParams captures the settings that shaped a run.
func runConfigParams(cfg *contract.Config, command string) map[string]any {
	eng := cfg.Engine
	return map[string]any{
		"command":                 command,
		"series":                  cfg.SeriesPath,
		"events":                  cfg.EventsPath,
		"question":                cfg.QuestionPath,
		"unit":                    string(eng.Unit),
		"baseline_window":         fmt.Sprintf("%g,%g", eng.BaselineWindow.StartOffsetMinutes, eng.BaselineWindow.EndOffsetMinutes),
		"response_window":         fmt.Sprintf("%g,%g", eng.ResponseWindow.StartOffsetMinutes, eng.ResponseWindow.EndOffsetMinutes),
		"coverage_warn_threshold": eng.CoverageWarnThreshold,
		"coverage_fail_threshold": eng.CoverageFailThreshold,
		"min_qualifying_events":   eng.MinQualifyingEvents,
		"confidence_weights":      eng.ConfidenceWeights,
	}
}
