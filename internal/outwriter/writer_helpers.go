package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/schema"
)

// timeFormat renders sample and event timestamps in tables and CSV.
const timeFormat = "2006-01-02 15:04"

// naText stands in for statistics that could not be computed.
const naText = "n/a"

// writeWithFile opens the output target, runs writer against it and reports where the
// result went. An empty outputFile means stdout.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON encodes data with two-space indentation.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader writes a header row followed by whatever writeRows emits.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	return writeRows(csvWriter)
}

// formatters renders numbers with the configured precision.
type formatters struct {
	precision int
}

// newFormatters creates the formatters for a precision.
func newFormatters(precision int) formatters {
	return formatters{precision: precision}
}

// float renders v with the configured precision.
func (f formatters) float(v float64) string {
	return strconv.FormatFloat(v, 'f', f.precision, 64)
}

// optFloat renders a nullable statistic.
func (f formatters) optFloat(v *float64) string {
	if v == nil {
		return naText
	}
	return f.float(*v)
}

// optPercent renders a nullable ratio in [0,1] as a percentage.
func (f formatters) optPercent(v *float64) string {
	if v == nil {
		return naText
	}
	return f.float(*v*100) + "%"
}

// csvFloat renders a nullable value for CSV, where missing is an empty cell.
func (f formatters) csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return f.float(*v)
}

// optInt renders a nullable count.
func optInt(v *int) string {
	if v == nil {
		return naText
	}
	return strconv.Itoa(*v)
}

// optBool renders a nullable flag.
func optBool(v *bool) string {
	if v == nil {
		return naText
	}
	if *v {
		return "yes"
	}
	return "no"
}

// optTime renders a nullable timestamp.
func optTime(v *time.Time) string {
	if v == nil {
		return naText
	}
	return v.Format(timeFormat)
}

// joinFlags renders quality flags for one table or CSV cell.
func joinFlags(flags []schema.QualityFlag, sep string) string {
	return strings.Join(schema.FlagStrings(flags), sep)
}

// truncate shortens s to width runes with a trailing ellipsis.
func truncate(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
