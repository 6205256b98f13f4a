// noesis is an adaptive multi-stage reasoning CLI: a planner model routes
// each question to a domain specialist, optionally gathering tool context
// and verifying the draft answer before it reaches the user.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"noesis/internal/cache"
	"noesis/internal/config"
	"noesis/internal/llm"
	"noesis/internal/logging"
	"noesis/internal/mcp"
	"noesis/internal/pipeline"
	"noesis/internal/usage"
)

var (
	verbose bool
	noTools bool
	plain   bool
)

var rootCmd = &cobra.Command{
	Use:   "noesis",
	Short: "noesis - adaptive multi-stage reasoning pipeline",
	Long: `noesis answers questions through a staged pipeline: a planner model
drafts an approach and routes the question to a math, code, or general
specialist; external tools supply fresh facts when the plan asks for
them; and a verifier model checks hard answers before they are shown.

An adaptive decision engine skips the stages a question does not need.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine; the environment may already be set.
		_ = godotenv.Load()
		if err := logging.Initialize(verbose); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noTools, "no-tools", false, "do not start the tool server subprocess")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "disable terminal rendering, print raw text")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(usageCmd)
}

// app bundles the wired pipeline with the resources it owns.
type app struct {
	cfg   *config.Config
	orch  *pipeline.Orchestrator
	tools *mcp.Client
	rec   *usage.Recorder
}

// buildApp loads configuration and wires the full pipeline. The tool
// subprocess and the telemetry database are both optional: failing to
// start either degrades the pipeline rather than aborting the command.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	roles, err := llm.NewRoleSet(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build model roles: %w", err)
	}

	a := &app{cfg: cfg}

	var invoker pipeline.ToolInvoker
	if !noTools && cfg.ToolServerCmd != "" {
		client := mcp.NewClient(cfg.ToolServerCmd)
		if err := client.Start(); err != nil {
			logging.Get(logging.CategoryBoot).Warn("tool server %q not started: %v", cfg.ToolServerCmd, err)
		} else {
			a.tools = client
			invoker = client
		}
	}

	var sink pipeline.UsageSink
	if rec, err := usage.Open(cfg.UsageDBPath); err != nil {
		logging.Get(logging.CategoryBoot).Warn("usage recorder disabled: %v", err)
	} else {
		a.rec = rec
		sink = rec
	}

	a.orch = pipeline.NewOrchestrator(roles, invoker, cache.New(cfg.CacheCapacity, cfg.CacheTTL), sink, pipeline.OptionsFromConfig(cfg))
	return a, nil
}

func (a *app) shutdown() {
	if a.tools != nil {
		_ = a.tools.Close()
	}
	if a.rec != nil {
		_ = a.rec.Close()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
