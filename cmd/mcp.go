package cmd

import (
	"github.com/huangsam/cgmlens/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the cgmlens MCP server",
	Long: `Launch an MCP server on stdio that lets AI agents assess signal quality, compute
event metrics and signals, and evaluate question answerability through standard tools.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
