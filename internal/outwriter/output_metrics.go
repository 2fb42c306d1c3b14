package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/internal/parquet"
	"github.com/huangsam/cgmlens/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteMetrics outputs per-event metrics, dispatching on the configured format.
func WriteMetrics(report schema.MetricsReport, cfg *contract.Config, duration time.Duration) error {
	f := newFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeMetricsCSV(w, report, f)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeMetricsParquet(report, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeMetricsTable(w, report, cfg, f); err != nil {
				return err
			}
			return writeFooter(w, schema.RunSummary{RunID: report.RunID, Duration: duration, Backend: cfg.CacheBackend})
		}, "Wrote table")
	}
	return nil
}

// writeMetricsParquet writes one row per computed metric.
func writeMetricsParquet(report schema.MetricsReport, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for parquet output")
	}
	if err := parquet.WriteMetricsParquet(parquet.ConvertEventMetrics(report.Events, time.Now().UTC()), outputFile); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote parquet to %s\n", outputFile)
	return nil
}

// writeMetricsTable renders one row per metric, then the reasons metrics were skipped.
func writeMetricsTable(w io.Writer, report schema.MetricsReport, cfg *contract.Config, f formatters) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Event", "Type", "Start", "Metric", "Value", "Unit", "Coverage", "Flags"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	// event id, type and flags share the free-text width
	textWidth := getMaxTextWidth(cfg, 70) / 3

	var data [][]string
	for _, em := range report.Events {
		for _, m := range em.Metrics {
			data = append(data, []string{
				truncate(em.EventID, textWidth),
				truncate(em.EventType, textWidth),
				em.StartTime.Format(timeFormat),
				string(m.Name),
				f.float(m.Value),
				m.Unit,
				f.optPercent(m.CoverageRatio),
				truncate(joinFlags(m.QualityFlags, " "), textWidth),
			})
		}
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	computed, skipped := 0, 0
	for _, em := range report.Events {
		computed += len(em.Metrics)
		if em.Error != "" {
			skipped++
			if _, err := fmt.Fprintf(w, "❌ %s: %s\n", em.EventID, em.Error); err != nil {
				return err
			}
			continue
		}
		for _, failure := range em.Failures {
			skipped++
			if _, err := fmt.Fprintf(w, "➖ %s/%s: %s\n", em.EventID, failure.Name, failure.Reason); err != nil {
				return err
			}
		}
	}

	interval := naText
	if report.IntervalMinutes != nil {
		interval = f.float(*report.IntervalMinutes) + " min"
	}
	_, err := fmt.Fprintf(w, "Showing %d metrics for %d events (%d skipped, interval: %s)\n", computed, len(report.Events), skipped, interval)
	return err
}

// writeMetricsCSV writes one row per computed metric.
func writeMetricsCSV(w io.Writer, report schema.MetricsReport, f formatters) error {
	header := []string{
		"event_id",
		"event_type",
		"start_time",
		"metric_name",
		"value",
		"unit",
		"coverage_ratio",
		"quality_flags",
		"window_start",
		"window_end",
		"method",
		"metric_version",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, em := range report.Events {
			for _, m := range em.Metrics {
				rec := []string{
					em.EventID,
					em.EventType,
					em.StartTime.Format(time.RFC3339),
					string(m.Name),
					f.float(m.Value),
					m.Unit,
					f.csvFloat(m.CoverageRatio),
					joinFlags(m.QualityFlags, "|"),
					strconv.FormatFloat(m.Window.StartOffsetMinutes, 'f', -1, 64),
					strconv.FormatFloat(m.Window.EndOffsetMinutes, 'f', -1, 64),
					m.Method,
					m.Version,
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
