package iocache

import (
	"errors"
	"fmt"

	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/internal/parquet"
)

// ExecuteHistoryExport exports the global history store to Parquet files.
func ExecuteHistoryExport(outputFile string) error {
	store := Manager.GetHistoryStore()
	if store == nil {
		return errors.New("history store is not initialized")
	}
	return ExportHistory(store, outputFile)
}

// ExportHistory writes runs, metrics and verdicts to <outputFile>.<table>.parquet.
func ExportHistory(store contract.HistoryStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no history data found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total runs: %d\n", status.TotalRuns)
	fmt.Printf("Total metric records: %d\n", status.TableSizes[metricsTable])
	fmt.Printf("Total verdict records: %d\n", status.TableSizes[verdictsTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	metrics, err := store.GetAllMetrics()
	if err != nil {
		return fmt.Errorf("failed to retrieve metrics: %w", err)
	}
	verdicts, err := store.GetAllVerdicts()
	if err != nil {
		return fmt.Errorf("failed to retrieve verdicts: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	fmt.Printf("Exported %d runs to: %s\n", len(runs), runsFile)

	metricsFile := outputFile + ".metrics.parquet"
	if err := parquet.WriteMetricsParquet(parquet.ConvertMetricRecords(metrics), metricsFile); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	fmt.Printf("Exported %d metric records to: %s\n", len(metrics), metricsFile)

	verdictsFile := outputFile + ".verdicts.parquet"
	if err := parquet.WriteVerdictsParquet(parquet.ConvertVerdictRecords(verdicts), verdictsFile); err != nil {
		return fmt.Errorf("failed to write verdicts: %w", err)
	}
	fmt.Printf("Exported %d verdict records to: %s\n", len(verdicts), verdictsFile)

	fmt.Println("\nExport complete! The Parquet files can be read with DuckDB, Pandas (via pyarrow), or Apache Arrow.")
	return nil
}
