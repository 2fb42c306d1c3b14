package cmd

import (
	"github.com/huangsam/cgmlens/core"
	"github.com/huangsam/cgmlens/internal/contract"
	"github.com/spf13/cobra"
)

// evaluateCmd decides whether questions can be answered from the data.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Decide whether a question is answerable from the data.",
	Long: `Evaluate one or more questions against the series and events.

Each question gets:
- A status: answerable, partial or unanswerable
- A confidence in [0, 1] with its four-part breakdown
- The checks that passed and failed, with their findings
- Limitations and the data that would make the answer possible or stronger

Questions are evaluated concurrently (see --workers). With a history backend enabled,
every run is recorded for later export.

Examples:
  # Is the typical meal response describable?
  cgmlens evaluate -s week1.json -e meals.json -q meal-peak.yaml

  # Comparative question, stricter group size, JSON output
  cgmlens evaluate -s week1.json -e meals.json -q rice-vs-pasta.yaml --min-events 8 --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteEvaluate(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot evaluate questions", err)
		}
	},
}
