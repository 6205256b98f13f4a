package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"noesis/internal/config"
	"noesis/internal/mcp"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools exposed by the configured tool server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		client := mcp.NewClient(cfg.ToolServerCmd)
		if err := client.Start(); err != nil {
			return fmt.Errorf("start tool server %q: %w", cfg.ToolServerCmd, err)
		}
		defer client.Close()

		tools, err := client.ListTools(cmd.Context(), cfg.ToolTimeout)
		if err != nil {
			return fmt.Errorf("list tools: %w", err)
		}

		if len(tools) == 0 {
			cmd.Println("no tools registered")
			return nil
		}
		for _, t := range tools {
			cmd.Printf("%-16s %s\n", t.Name, t.Description)
		}
		return nil
	},
}
