package cmd

import (
	"github.com/huangsam/cgmlens/core"
	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/spf13/cobra"
)

// signalsCmd classifies each event response.
var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Classify each event response as red, yellow, green or gray.",
	Long: `Label every event response against absolute limits and the personal history of prior events.

Status:
- red:    above the hard peak limit, below the hard nadir limit or beyond the personal P90/P10
- yellow: beyond the personal P75/P25
- green:  within the usual range
- gray:   not enough data to judge

Examples:
  cgmlens signals --series week1.json --events meals.json
  cgmlens signals -s week1.json -e meals.json --output csv --output-file signals.csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteSignals(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot compute event signals", err)
		}
	},
}
