// Package mcp holds the `coachbook mcp` commands.
package mcp

import "github.com/spf13/cobra"

// Cmd groups the MCP commands.
var Cmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the booking workflow to AI assistants over MCP",
}

func init() {
	Cmd.AddCommand(serveCmd)
}
