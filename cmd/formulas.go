package cmd

import (
	"github.com/huangsam/cgmlens/core"
	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/spf13/cobra"
)

// formulasCmd displays the formal definitions of all metrics.
var formulasCmd = &cobra.Command{
	Use:   "formulas",
	Short: "Display the metric formulas, confidence weights and status rules",
	Long: `Show how every metric and the confidence score are computed.

Includes custom windows and weights if configured via .cgmlens.yaml.
No input files are read - this is purely informational.

Examples:
  # Show default formulas
  cgmlens formulas

  # View with custom weights from config file
  cgmlens formulas --config .cgmlens.yaml`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteFormulas(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot display formulas", err)
		}
	},
}
