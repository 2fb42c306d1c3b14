// Package cmd defines the command-line interface for cgmlens.
package cmd

import (
	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/huangsam/cgmlens/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(qualityCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(signalsCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(formulasCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	versionCmd.Flags().Bool("short", false, "Print only the release version")

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().StringP("series", "s", "", "Path to the glucose series JSON file")
	rootCmd.PersistentFlags().StringP("events", "e", "", "Path to the events JSON file")
	rootCmd.PersistentFlags().StringP("question", "q", "", "Path to the question YAML or JSON file")
	rootCmd.PersistentFlags().String("unit", string(schema.UnitMgDL), "Glucose unit for computation and output: mg/dL or mmol/L")
	rootCmd.PersistentFlags().String("baseline-window", "", "Baseline window as minute offsets from event start (e.g., -30,0)")
	rootCmd.PersistentFlags().String("response-window", "", "Response window as minute offsets from event start (e.g., 0,180)")
	rootCmd.PersistentFlags().Int("min-events", 0, "Minimum qualifying events per comparison group (0 = engine default)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().Int("workers", 0, "Number of concurrent question evaluations (0 = number of CPUs)")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", "", "Evaluation history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for evaluation history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
