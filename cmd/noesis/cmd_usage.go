package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"noesis/internal/config"
	"noesis/internal/usage"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarize recorded pipeline telemetry",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		rec, err := usage.Open(cfg.UsageDBPath)
		if err != nil {
			return fmt.Errorf("open usage db: %w", err)
		}
		defer rec.Close()

		s, err := rec.Summarize(cmd.Context())
		if err != nil {
			return err
		}

		cmd.Printf("turns:        %d\n", s.Turns)
		cmd.Printf("cache hits:   %d\n", s.CacheHits)
		cmd.Printf("specialist:   %d\n", s.SpecialistTurns)
		cmd.Printf("verified:     %d\n", s.VerifierTurns)
		cmd.Printf("tool-assisted: %d\n", s.ToolTurns)
		cmd.Printf("streamed:     %d\n", s.StreamedTurns)
		cmd.Printf("avg latency:  %s\n", s.AvgLatency)

		if len(s.ByRoute) > 0 {
			routes := make([]string, 0, len(s.ByRoute))
			for r := range s.ByRoute {
				routes = append(routes, r)
			}
			sort.Strings(routes)
			cmd.Println("by route:")
			for _, r := range routes {
				cmd.Printf("  %-8s %d\n", r, s.ByRoute[r])
			}
		}
		return nil
	},
}
