package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gargmohit24/platoonbench/internal/campaign"
	"github.com/gargmohit24/platoonbench/internal/pipeline"
	"github.com/gargmohit24/platoonbench/internal/simconfig"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "platoonbench",
		Short: "Parameter-sweep harness for platooning simulation campaigns",
		Long: `platoonbench expands a simulation campaign into its individual runs,
executes them against an external simulator binary, and post-processes
the recorded vector files: SQLite ingestion, collision detection, edge
congestion data and an HTML report.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			format, _ := cmd.Flags().GetString("log-format")
			return setupLogger(level, format)
		},
	}

	rootCmd.PersistentFlags().String("campaign", "campaign.hcl", "Path to the campaign file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newPlanCmd(),
		newIngestCmd(),
		newCollisionsCmd(),
		newEdgeDataCmd(),
		newReportCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "platoonbench version %s\n", version)
		},
	}
}

// setupLogger installs the process-wide slog handler.
func setupLogger(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q (must be text or json)", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

func loadCampaign(cmd *cobra.Command) (*campaign.Campaign, error) {
	path, _ := cmd.Flags().GetString("campaign")
	return campaign.Load(path)
}

// newBuilder loads the campaign's simulator ini and pairs the two into a
// pipeline builder. The ini path resolves against the simulator's working
// directory, like the simulator itself would.
func newBuilder(c *campaign.Campaign) (*pipeline.Builder, error) {
	iniPath := c.Simulator.Ini
	if !filepath.IsAbs(iniPath) {
		base := c.Dir
		if wd := c.Simulator.WorkDir; wd != "" {
			if filepath.IsAbs(wd) {
				base = wd
			} else {
				base = filepath.Join(c.Dir, wd)
			}
		}
		iniPath = filepath.Join(base, iniPath)
	}
	doc, err := simconfig.Load(iniPath)
	if err != nil {
		return nil, fmt.Errorf("load simulator config: %w", err)
	}
	return pipeline.New(c, doc), nil
}
