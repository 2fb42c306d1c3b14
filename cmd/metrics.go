package cmd

import (
	"github.com/huangsam/cgmlens/core"
	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/spf13/cobra"
)

// metricsCmd computes per-event response metrics.
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Compute glycemic response metrics for every event.",
	Long: `Compute the response metrics of every annotated event against the series.

For each event:
- baseline_glucose: median of the baseline window
- delta_peak and time_to_peak: rise above baseline and when it happened
- iAUC: positive incremental area under the curve over the response window
- recovery_slope and nadir_glucose: the post-peak return and the lowest post-event value

Metrics that cannot be computed are skipped with a reason instead of guessed.

Examples:
  # Default windows (-30,0 baseline and 0,180 response)
  cgmlens metrics --series week1.json --events meals.json

  # Shorter response window, exported for analytics
  cgmlens metrics -s week1.json -e meals.json --response-window 0,120 --output parquet --output-file metrics.parquet`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteMetrics(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot compute metrics", err)
		}
	},
}
