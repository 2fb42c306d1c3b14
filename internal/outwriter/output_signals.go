package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// signalColumns are the metric values shown for every event signal.
var signalColumns = []schema.MetricName{
	schema.SignalPeakGlucose,
	schema.MetricDeltaPeak,
	schema.MetricIAUC,
	schema.MetricNadir,
}

// WriteSignals outputs per-event signals, dispatching on the configured format.
func WriteSignals(report schema.SignalsReport, cfg *contract.Config, duration time.Duration) error {
	f := newFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSignalsCSV(w, report, f)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return errParquetUnsupported("event signals")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeSignalsTable(w, report, cfg, f); err != nil {
				return err
			}
			return writeFooter(w, schema.RunSummary{Duration: duration, Backend: cfg.CacheBackend})
		}, "Wrote table")
	}
}

// metricValue renders one signal metric, or n/a when it was not computed.
func metricValue(sig schema.EventSignal, name schema.MetricName, f formatters) string {
	v, ok := sig.MetricValues[name]
	if !ok {
		return naText
	}
	return f.float(v)
}

// signalReason summarizes why a signal left green.
func signalReason(sig schema.EventSignal) string {
	if len(sig.Triggers) == 0 {
		return strings.Join(sig.Reasons, "; ")
	}
	messages := make([]string, len(sig.Triggers))
	for i, t := range sig.Triggers {
		messages[i] = t.Message
	}
	return strings.Join(messages, "; ")
}

// writeSignalsTable renders one row per event with its status and trigger summary.
func writeSignalsTable(w io.Writer, report schema.SignalsReport, cfg *contract.Config, f formatters) error {
	table := tablewriter.NewWriter(w)
	headers := []string{"Event", "Start", "Status", "Coverage"}
	for _, name := range signalColumns {
		headers = append(headers, string(name))
	}
	headers = append(headers, "Reason")
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	reasonWidth := getMaxTextWidth(cfg, 100)

	counts := make(map[schema.SignalStatus]int)
	var data [][]string
	for _, sig := range report.Signals {
		counts[sig.Status]++
		row := []string{
			sig.EventID,
			sig.StartTime.Format(timeFormat),
			contract.GetSignalLabel(sig.Status, cfg.UseColors),
			f.optPercent(sig.CoverageRatio),
		}
		for _, name := range signalColumns {
			row = append(row, metricValue(sig, name, f))
		}
		row = append(row, truncate(signalReason(sig), reasonWidth))
		data = append(data, row)
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Signals for %d events (🔴 %d  🟡 %d  🟢 %d  ⚪ %d) in %s\n", len(report.Signals),
		counts[schema.SignalRed], counts[schema.SignalYellow], counts[schema.SignalGreen], counts[schema.SignalGray], report.Unit)
	return err
}

// writeSignalsCSV writes one row per event signal.
func writeSignalsCSV(w io.Writer, report schema.SignalsReport, f formatters) error {
	header := []string{"event_id", "event_type", "start_time", "status", "coverage_ratio"}
	for _, name := range signalColumns {
		header = append(header, string(name))
	}
	header = append(header, "history_count", "triggers")

	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, sig := range report.Signals {
			rec := []string{
				sig.EventID,
				sig.EventType,
				sig.StartTime.Format(time.RFC3339),
				string(sig.Status),
				f.csvFloat(sig.CoverageRatio),
			}
			for _, name := range signalColumns {
				v := metricValue(sig, name, f)
				if v == naText {
					v = ""
				}
				rec = append(rec, v)
			}
			rec = append(rec, strconv.Itoa(sig.HistoryCount), signalReason(sig))
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
