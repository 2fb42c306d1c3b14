package cmd

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/huangsam/cgmlens/core"
	"github.com/spf13/cobra"
)

// buildDetails describes the running binary.
type buildDetails struct {
	Version       string
	Commit        string
	Date          string
	GoVersion     string
	MetricVersion string
}

// currentBuild prefers ldflags values and falls back to VCS stamps from the module build.
func currentBuild() buildDetails {
	b := buildDetails{
		Version:       version,
		Commit:        commit,
		Date:          date,
		GoVersion:     runtime.Version(),
		MetricVersion: core.MetricVersion,
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "none" && s.Value != "" {
				b.Commit = s.Value[:min(len(s.Value), 12)]
			}
		case "vcs.time":
			if b.Date == "unknown" && s.Value != "" {
				b.Date = s.Value
			}
		}
	}
	return b
}

func (b buildDetails) write(w io.Writer, short bool) {
	if short {
		_, _ = fmt.Fprintln(w, b.Version)
		return
	}
	_, _ = fmt.Fprintf(w, "cgmlens %s (%s, built %s)\n", b.Version, b.Commit, b.Date)
	_, _ = fmt.Fprintf(w, "metric records: v%s\n", b.MetricVersion)
	_, _ = fmt.Fprintf(w, "go: %s %s/%s\n", b.GoVersion, runtime.GOOS, runtime.GOARCH)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the cgmlens build and metric record version",
	Long: `Print the release, commit and build date of this binary along with
the version stamped on every computed metric record.

Metric records written by a different version may not be comparable.

Examples:
  cgmlens version
  cgmlens version --short`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		short, _ := cmd.Flags().GetBool("short")
		currentBuild().write(cmd.OutOrStdout(), short)
	},
}
