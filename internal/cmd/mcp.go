package cmd

import (
	"github.com/neodroidpune/GCMUtility/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP (Model Context Protocol) server on stdio",
	Long: `Start an MCP server that exposes GCM registration as a tool and the
cached registration as a resource.

The server communicates via JSON-RPC over stdin/stdout. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer rt.Close()

		s := mcpserver.New(rt.manager, rt.cfg.SenderID, rootCmd.Version, rt.logger)
		return s.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
