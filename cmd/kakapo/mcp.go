package main

import (
	"os"

	"github.com/kakapo-ai/kakapo/pkg/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve kakapo tools over MCP on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return mcp.New(a.mcpDeps(), version).Run(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
}
