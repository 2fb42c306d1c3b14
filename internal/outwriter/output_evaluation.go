package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/internal/parquet"
	"github.com/huangsam/cgmlens/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteEvaluation outputs the verdict of every question, dispatching on the configured format.
func WriteEvaluation(report schema.EvaluationReport, cfg *contract.Config, duration time.Duration) error {
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
			return writeEvaluationCSV(w, report, f)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeVerdictsParquet(report, cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeEvaluationText(w, report, cfg, f); err != nil {
				return err
			}
			return writeFooter(w, schema.RunSummary{RunID: report.RunID, Duration: duration, Backend: cfg.CacheBackend})
		}, "Wrote report")
	}
	return nil
}

// writeVerdictsParquet writes one row per verdict.
func writeVerdictsParquet(report schema.EvaluationReport, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for parquet output")
	}
	rows, err := parquet.ConvertOutcomes(report.Outcomes, report.EvaluatedAt)
	if err != nil {
		return err
	}
	if err := parquet.WriteVerdictsParquet(rows, outputFile); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote parquet to %s\n", outputFile)
	return nil
}

// writeEvaluationText renders each question as a headline, its checks table and its caveats.
func writeEvaluationText(w io.Writer, report schema.EvaluationReport, cfg *contract.Config, f formatters) error {
	counts := make(map[schema.VerdictStatus]int)
	failed := 0
	for _, o := range report.Outcomes {
		if o.Verdict == nil {
			failed++
			if _, err := fmt.Fprintf(w, "❓ %s: ❌ %s\n\n", o.QuestionID, o.Error); err != nil {
				return err
			}
			continue
		}
		counts[o.Verdict.Status]++
		if err := writeVerdictText(w, *o.Verdict, cfg, f); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "Evaluated %d questions (answerable: %d, partial: %d, unanswerable: %d, failed: %d)\n",
		len(report.Outcomes), counts[schema.StatusAnswerable], counts[schema.StatusPartial], counts[schema.StatusUnanswerable], failed)
	return err
}

// writeVerdictText renders a single verdict.
func writeVerdictText(w io.Writer, v schema.Verdict, cfg *contract.Config, f formatters) error {
	label := contract.GetPlainLabel(v.Confidence)
	if cfg.UseColors {
		label = contract.GetColorLabel(v.Confidence)
	}
	if _, err := fmt.Fprintf(w, "❓ %s: %s (confidence %s, %s; rule: %s)\n", v.QuestionID,
		contract.GetStatusLabel(v.Status, cfg.UseColors), f.float(v.Confidence), label, v.MatchedRule); err != nil {
		return err
	}
	b := v.ConfidenceBreakdown
	if _, err := fmt.Fprintf(w, "   completeness %s · methodology %s · confounds %s · timing %s\n",
		f.float(b.DataCompleteness), f.float(b.MethodologyReliability), f.float(b.ConfoundControl), f.float(b.TimingAccuracy)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Category", "Check", "Outcome", "Finding"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})
	findingWidth := getMaxTextWidth(cfg, 60)
	var data [][]string
	for _, c := range v.Checks {
		data = append(data, []string{string(c.Category), c.Name, checkLabel(c.Outcome), truncate(c.Finding, findingWidth)})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, g := range v.Groups {
		if _, err := fmt.Fprintf(w, "👥 %s: %d matched, %d usable (missing metric %d, low coverage %d, window mismatch %d, confounded %d)\n",
			g.Group, g.Matched, g.Usable, g.MissingMetric, g.LowCoverage, g.WindowMismatch, g.Confounded); err != nil {
			return err
		}
	}
	for _, l := range v.Limitations {
		marker := "⚠️ "
		if l.Blocking {
			marker = "⛔"
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", marker, l.Text); err != nil {
			return err
		}
	}
	for _, r := range v.DataRequirements {
		if _, err := fmt.Fprintf(w, "📌 %s: %s\n", r.Type, r.Detail); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// checkLabel marks a check outcome with a symbol.
func checkLabel(outcome schema.CheckOutcome) string {
	switch outcome {
	case schema.CheckPassed:
		return "✅ passed"
	case schema.CheckFailed:
		return "❌ failed"
	default:
		return "➖ " + string(outcome)
	}
}

// writeEvaluationCSV writes one row per question.
func writeEvaluationCSV(w io.Writer, report schema.EvaluationReport, f formatters) error {
	header := []string{
		"question_id",
		"status",
		"confidence",
		"label",
		"data_completeness",
		"methodology_reliability",
		"confound_control",
		"timing_accuracy",
		"failed_checks",
		"matched_rule",
		"usable_events",
		"error",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, o := range report.Outcomes {
			if o.Verdict == nil {
				if err := cw.Write([]string{o.QuestionID, "", "", "", "", "", "", "", "", "", "", o.Error}); err != nil {
					return err
				}
				continue
			}
			v := o.Verdict
			usable := 0
			for _, g := range v.Groups {
				usable += g.Usable
			}
			b := v.ConfidenceBreakdown
			rec := []string{
				v.QuestionID,
				string(v.Status),
				f.float(v.Confidence),
				contract.GetPlainLabel(v.Confidence),
				f.float(b.DataCompleteness),
				f.float(b.MethodologyReliability),
				f.float(b.ConfoundControl),
				f.float(b.TimingAccuracy),
				strings.Join(v.FailedChecks, "|"),
				v.MatchedRule,
				strconv.Itoa(usable),
				"",
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
