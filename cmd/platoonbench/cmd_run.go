package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gargmohit24/platoonbench/internal/ctxlog"
	"github.com/gargmohit24/platoonbench/internal/executor"
	"github.com/gargmohit24/platoonbench/internal/pipeline"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the campaign's simulation runs and post-processing",
		Long: `Expand every scenario into its runs, execute them on a worker pool
and run the configured post-processing stages once all runs finished.

Examples:
  platoonbench run                          # full campaign
  platoonbench run --workers 4              # limit parallel simulator processes
  platoonbench run --scenario HighTraffic   # one scenario only
  platoonbench run --run 17 --skip-post     # replay a single run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, _ := cmd.Flags().GetInt("workers")
			scenario, _ := cmd.Flags().GetString("scenario")
			runNumber, _ := cmd.Flags().GetInt("run")
			skipPost, _ := cmd.Flags().GetBool("skip-post")

			c, err := loadCampaign(cmd)
			if err != nil {
				return err
			}
			b, err := newBuilder(c)
			if err != nil {
				return err
			}

			g, err := b.Graph(pipeline.Filter{Scenario: scenario, RunNumber: runNumber}, skipPost)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx = ctxlog.WithLogger(ctx, slog.Default())

			slog.Info("Campaign starting.", "nodes", g.Len(), "workers", workers)
			if err := executor.New(g, workers).Run(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Campaign finished.")
			return nil
		},
	}

	cmd.Flags().Int("workers", runtime.NumCPU(), "Number of parallel simulator processes")
	cmd.Flags().String("scenario", "", "Only execute the named scenario")
	cmd.Flags().Int("run", -1, "Only execute the given run number")
	cmd.Flags().Bool("skip-post", false, "Skip post-processing stages")
	return cmd
}
