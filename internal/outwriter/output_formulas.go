package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/schema"
)

// WriteFormulas displays the definitions of every metric and the confidence score.
// This is a static display that does not read any input.
func WriteFormulas(model schema.FormulasRenderModel, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, model)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeFormulasCSV(w, model)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return errParquetUnsupported("formulas")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeFormulasText(w, model)
		}, "Wrote text")
	}
}

// writeFormulasText displays the formulas in human-readable text format.
func writeFormulasText(w io.Writer, model schema.FormulasRenderModel) error {
	lines := []string{
		"🩸 " + model.Title,
		"==============================",
		"",
		model.Description,
		"",
		"📈 Metrics",
	}
	for _, m := range model.Metrics {
		lines = append(lines,
			fmt.Sprintf("%s [%s] over %s", m.Name, m.Unit, m.Window),
			fmt.Sprintf("   Formula: %s", m.Formula),
		)
	}

	lines = append(lines, "", "🎯 Confidence = weighted sum of clamped sub-scores")
	for _, c := range model.Confidence {
		lines = append(lines, fmt.Sprintf("%.2f × %s = %s", c.Weight, c.Name, c.Formula))
	}

	lines = append(lines, "", "🧭 Status rules (first match wins)")
	lines = append(lines, model.StatusRules...)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// writeFormulasCSV writes one row per metric and per confidence component.
func writeFormulasCSV(w io.Writer, model schema.FormulasRenderModel) error {
	return writeCSVWithHeader(w, []string{"kind", "name", "unit", "window", "weight", "formula"}, func(cw *csv.Writer) error {
		for _, m := range model.Metrics {
			if err := cw.Write([]string{"metric", string(m.Name), m.Unit, m.Window, "", m.Formula}); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		for _, c := range model.Confidence {
			if err := cw.Write([]string{"confidence", c.Name, "", "", fmt.Sprintf("%.2f", c.Weight), c.Formula}); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		for i, rule := range model.StatusRules {
			if err := cw.Write([]string{"status_rule", fmt.Sprintf("%d", i+1), "", "", "", rule}); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	})
}
