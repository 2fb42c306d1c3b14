// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/schema"
	"golang.org/x/term"
)

// LogRunHeader prints a concise, 2-line header before a command renders its result.
func LogRunHeader(cfg *contract.Config, series schema.Series, numEvents, numQuestions int) {
	writeRunHeader(os.Stdout, cfg, series, numEvents, numQuestions)
}

func writeRunHeader(w io.Writer, cfg *contract.Config, series schema.Series, numEvents, numQuestions int) {
	seriesID := series.SeriesID
	if seriesID == "" {
		seriesID = "unnamed"
	}

	// Line 1: the series and its unit
	_, _ = fmt.Fprintf(w, "🔎 Series: %s (%d samples, %s)\n", seriesID, len(series.Samples), cfg.Engine.Unit)

	// Line 2: the time span and what is being evaluated against it
	if n := len(series.Samples); n > 0 {
		_, _ = fmt.Fprintf(w, "📅 Range: %s → %s (events: %d, questions: %d)\n",
			series.Samples[0].Timestamp.Format(timeFormat),
			series.Samples[n-1].Timestamp.Format(timeFormat),
			numEvents, numQuestions)
	}
}

// writeFooter prints the closing summary line of a text report.
func writeFooter(w io.Writer, summary schema.RunSummary) error {
	if summary.RunID != "" {
		_, err := fmt.Fprintf(w, "Run %s completed in %v. Cache backend: %s\n", summary.RunID, summary.Duration, summary.Backend)
		return err
	}
	_, err := fmt.Fprintf(w, "Completed in %v. Cache backend: %s\n", summary.Duration, summary.Backend)
	return err
}

// getMaxTextWidth calculates the widest free-text column (labels, findings, reasons)
// that fits the terminal next to the fixed numeric columns.
func getMaxTextWidth(cfg *contract.Config, fixedWidth int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve space for table borders, separators and padding
	available := termWidth - fixedWidth - 20
	if available < 20 {
		return 20
	}
	if available > 90 {
		return 90
	}
	return available
}

// errParquetUnsupported reports a result type that has no row form.
func errParquetUnsupported(what string) error {
	return fmt.Errorf("parquet output is not supported for %s; use text, json or csv", what)
}
