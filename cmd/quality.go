package cmd

import (
	"github.com/huangsam/cgmlens/core"
	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/spf13/cobra"
)

// qualityCmd reports the signal quality of a glucose series.
var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Assess the signal quality of a glucose series.",
	Long: `Inspect a CGM series before trusting any metric computed from it.

Reports:
- Sample counts, coverage and the observed sampling interval
- Gaps longer than the expected interval and the largest gap
- Artifacts (single-sample spikes and drops), flatlines and extreme values
- Overall quality flags such as low_coverage or irregular_sampling

Results are cached per series content, so re-running on an unchanged file is instant.

Examples:
  # Quality of a single series
  cgmlens quality --series week1.json

  # Same report in mmol/L as JSON
  cgmlens quality --series week1.json --unit mmol/L --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteQuality(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run quality analysis", err)
		}
	},
}
