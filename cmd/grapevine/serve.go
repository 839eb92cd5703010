package main

import (
	"github.com/spf13/cobra"

	"grapevine/internal/mcp"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the world as MCP tools over stdio",
		Args:  cobra.NoArgs,
		Run:   runServe,
	}

	rootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	a, cleanup, err := createApp(cmd.Context())
	if err != nil {
		exitErr("start", err)
	}
	defer cleanup()

	if err := mcp.NewServer(a.world, a.debug).Run(cmd.Context()); err != nil {
		exitErr("serve", err)
	}
}
