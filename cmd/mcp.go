package cmd

import (
	"github.com/huangsam/autoindex/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the autoindex MCP server",
	Long: `Launch an MCP server on stdio exposing tracker inspection, query splitting
and federated search as tools for AI agents.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, appStore, newSearcher())
	},
}
