package cmd

import (
	"os/signal"
	"syscall"

	"github.com/huangsam/devscore/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd starts the MCP server over stdio, or over streamable HTTP when --http is set.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the devscore MCP server",
	Long: `Launch an MCP server that lets AI agents scan users and read scores via standard tools.

Tools: scan_user, get_score, get_weights. The server uses the configured token
for every scan.

Examples:
  devscore mcp
  devscore mcp --http :8081`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Progress lines stay off in MCP mode; stdio carries the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr, _ := cmd.Flags().GetString("http")
		ctx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return mcp.StartMCPServer(ctx, cfg, cacheManager, addr)
	},
}

func init() {
	mcpCmd.Flags().String("http", "", "Serve MCP over streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}
