// Package parquet provides data structures and functions for exporting cgmlens
// history and metric data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangsam/cgmlens/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single recorded engine run.
// This struct maps to the cgmlens_runs database table.
type Run struct {
	RunID          int64      `parquet:"run_id,snappy"`
	RunUUID        string     `parquet:"run_uuid,snappy"`
	SeriesID       string     `parquet:"series_id,snappy"`
	StartTime      time.Time  `parquet:"start_time,snappy"`
	EndTime        *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs  *int32     `parquet:"run_duration_ms,optional,snappy"`
	TotalEvents    int32      `parquet:"total_events,snappy"`
	TotalQuestions int32      `parquet:"total_questions,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// MetricRow represents one metric value for one event.
// This struct maps to the cgmlens_metrics database table and to metric output rows.
type MetricRow struct {
	RunID      int64   `parquet:"run_id,snappy"`
	EventID    string  `parquet:"event_id,snappy"`
	MetricName string  `parquet:"metric_name,snappy"`
	Value      float64 `parquet:"value,snappy"`
	Unit       string  `parquet:"unit,snappy"`

	// CoverageRatio is nil when no expected sample count could be derived
	CoverageRatio *float64 `parquet:"coverage_ratio,optional,snappy"`

	// QualityFlags is a comma-separated list of flags
	QualityFlags string    `parquet:"quality_flags,snappy"`
	RecordedAt   time.Time `parquet:"recorded_at,snappy"`
}

// VerdictRow represents one answerability verdict.
// This struct maps to the cgmlens_verdicts database table.
type VerdictRow struct {
	RunID        int64   `parquet:"run_id,snappy"`
	QuestionID   string  `parquet:"question_id,snappy"`
	Status       string  `parquet:"status,snappy"`
	Confidence   float64 `parquet:"confidence,snappy"`
	FailedChecks string  `parquet:"failed_checks,snappy"`

	// Payload is the full verdict as JSON
	Payload    string    `parquet:"payload,snappy"`
	RecordedAt time.Time `parquet:"recorded_at,snappy"`
}

// writeRows writes rows to a Parquet file whose schema is inferred from T.
func writeRows[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteRunsParquet writes runs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteMetricsParquet writes metric rows to a Parquet file.
func WriteMetricsParquet(data []MetricRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteVerdictsParquet writes verdict rows to a Parquet file.
func WriteVerdictsParquet(data []VerdictRow, outputPath string) error {
	return writeRows(data, outputPath)
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:          record.RunID,
			RunUUID:        record.RunUUID,
			SeriesID:       record.SeriesID,
			StartTime:      record.StartTime,
			EndTime:        record.EndTime,
			RunDurationMs:  record.RunDurationMs,
			TotalEvents:    record.TotalEvents,
			TotalQuestions: record.TotalQuestions,
			ConfigParams:   record.ConfigParams,
		}
	}
	return result
}

// ConvertMetricRecords converts schema.MetricRecord to MetricRow for Parquet export.
func ConvertMetricRecords(records []schema.MetricRecord) []MetricRow {
	result := make([]MetricRow, len(records))
	for i, record := range records {
		result[i] = MetricRow{
			RunID:         record.RunID,
			EventID:       record.EventID,
			MetricName:    record.MetricName,
			Value:         record.Value,
			Unit:          record.Unit,
			CoverageRatio: record.CoverageRatio,
			QualityFlags:  record.QualityFlags,
			RecordedAt:    record.RecordedAt,
		}
	}
	return result
}

// ConvertVerdictRecords converts schema.VerdictRecord to VerdictRow for Parquet export.
func ConvertVerdictRecords(records []schema.VerdictRecord) []VerdictRow {
	result := make([]VerdictRow, len(records))
	for i, record := range records {
		result[i] = VerdictRow{
			RunID:        record.RunID,
			QuestionID:   record.QuestionID,
			Status:       record.Status,
			Confidence:   record.Confidence,
			FailedChecks: record.FailedChecks,
			Payload:      record.Payload,
			RecordedAt:   record.RecordedAt,
		}
	}
	return result
}

// ConvertEventMetrics flattens a metrics report into rows. Rows that did not
// come from a recorded run carry a zero RunID.
func ConvertEventMetrics(events []schema.EventMetrics, recordedAt time.Time) []MetricRow {
	var result []MetricRow
	for _, em := range events {
		for _, m := range em.Metrics {
			result = append(result, MetricRow{
				EventID:       m.EventID,
				MetricName:    string(m.Name),
				Value:         m.Value,
				Unit:          m.Unit,
				CoverageRatio: m.CoverageRatio,
				QualityFlags:  strings.Join(schema.FlagStrings(m.QualityFlags), ","),
				RecordedAt:    recordedAt,
			})
		}
	}
	return result
}

// ConvertOutcomes flattens evaluation outcomes into verdict rows. Outcomes that
// stopped with an error have no verdict and produce no row.
func ConvertOutcomes(outcomes []schema.QuestionOutcome, recordedAt time.Time) ([]VerdictRow, error) {
	var result []VerdictRow
	for _, o := range outcomes {
		if o.Verdict == nil {
			continue
		}
		payload, err := json.Marshal(o.Verdict)
		if err != nil {
			return nil, fmt.Errorf("failed to encode verdict %s: %w", o.QuestionID, err)
		}
		result = append(result, VerdictRow{
			QuestionID:   o.Verdict.QuestionID,
			Status:       string(o.Verdict.Status),
			Confidence:   o.Verdict.Confidence,
			FailedChecks: strings.Join(o.Verdict.FailedChecks, ","),
			Payload:      string(payload),
			RecordedAt:   recordedAt,
		})
	}
	return result, nil
}
