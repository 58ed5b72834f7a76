package main

import (
	"github.com/spf13/cobra"

	"pmcbot/internal/mcptool"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ask_pmc tool over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return mcptool.ServeStdio(mcptool.NewServer(a.Chat))
		},
	}
}
