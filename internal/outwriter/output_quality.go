package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteQuality outputs a signal quality report, dispatching on the configured format.
func WriteQuality(q schema.SignalQuality, cfg *contract.Config, duration time.Duration) error {
	f := newFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, q)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeQualityCSV(w, q, f)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return errParquetUnsupported("signal quality")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeQualityTable(w, q, f); err != nil {
				return err
			}
			return writeFooter(w, schema.RunSummary{Duration: duration, Backend: cfg.CacheBackend})
		}, "Wrote table")
	}
}

// qualityRows flattens the report into statistic/value pairs in display order.
func qualityRows(q schema.SignalQuality, f formatters) [][]string {
	return [][]string{
		{"total_samples", strconv.Itoa(q.TotalSamples)},
		{"valid_samples", strconv.Itoa(q.ValidSamples)},
		{"first_timestamp", optTime(q.FirstTimestamp)},
		{"last_timestamp", optTime(q.LastTimestamp)},
		{"span_minutes", f.optFloat(q.SpanMinutes)},
		{"median_interval_minutes", f.optFloat(q.MedianIntervalMinutes)},
		{"mean_interval_minutes", f.optFloat(q.MeanIntervalMinutes)},
		{"cv_interval", f.optFloat(q.CVInterval)},
		{"is_regular", optBool(q.IsRegular)},
		{"expected_samples", optInt(q.ExpectedSamples)},
		{"coverage_percentage", f.optFloat(q.CoveragePercentage)},
		{"missing_intervals", optInt(q.MissingIntervals)},
		{"large_gaps", optInt(q.LargeGaps)},
		{"min_value", f.optFloat(q.MinValue)},
		{"max_value", f.optFloat(q.MaxValue)},
		{"mean_value", f.optFloat(q.MeanValue)},
		{"extreme_low", optInt(q.ExtremeLow)},
		{"extreme_high", optInt(q.ExtremeHigh)},
		{"suspicious_spikes", optInt(q.SuspiciousSpikes)},
		{"suspicious_drops", optInt(q.SuspiciousDrops)},
		{"flatline_runs", strconv.Itoa(len(q.FlatlineRuns))},
	}
}

// sortedFlags returns the tallied flags in a stable order.
func sortedFlags(tally map[schema.QualityFlag]int) []schema.QualityFlag {
	flags := make([]schema.QualityFlag, 0, len(tally))
	for flag := range tally {
		flags = append(flags, flag)
	}
	slices.Sort(flags)
	return flags
}

// writeQualityTable renders the statistics table followed by the issue list.
func writeQualityTable(w io.Writer, q schema.SignalQuality, f formatters) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Statistic", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	data := qualityRows(q, f)
	for _, flag := range sortedFlags(q.FlagTally) {
		data = append(data, []string{"flag:" + string(flag), strconv.Itoa(q.FlagTally[flag])})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, gap := range q.LargeGapSpans {
		if _, err := fmt.Fprintf(w, "⏸️  Gap: %s → %s (%s min)\n", gap.Start.Format(timeFormat), gap.End.Format(timeFormat), f.float(gap.Minutes)); err != nil {
			return err
		}
	}
	for _, c := range q.SuspiciousChanges {
		if _, err := fmt.Fprintf(w, "⚡ Suspicious %s at %s: %s → %s → %s\n", c.Kind, c.Timestamp.Format(timeFormat),
			f.float(c.PreviousValue), f.float(c.Value), f.float(c.NextValue)); err != nil {
			return err
		}
	}
	for _, issue := range q.Issues {
		if _, err := fmt.Fprintf(w, "⚠️  %s\n", issue); err != nil {
			return err
		}
	}
	return nil
}

// writeQualityCSV writes one statistic per row.
func writeQualityCSV(w io.Writer, q schema.SignalQuality, f formatters) error {
	return writeCSVWithHeader(w, []string{"statistic", "value"}, func(cw *csv.Writer) error {
		for _, row := range qualityRows(q, f) {
			if row[1] == naText {
				row[1] = ""
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		for _, flag := range sortedFlags(q.FlagTally) {
			if err := cw.Write([]string{"flag:" + string(flag), strconv.Itoa(q.FlagTally[flag])}); err != nil {
				return err
			}
		}
		return nil
	})
}
