package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gargmohit24/platoonbench/internal/pipeline"
)

func newCollisionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collisions",
		Short: "Scan ingested runs for collisions",
		Long: `Scan every ingested run for imminent rear-end collisions between
consecutive snapshots and record them in the results database. Uses the
campaign's collisions block for the network file, coordinate transform
and time-to-collision boundary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCampaign(cmd)
			if err != nil {
				return err
			}
			n, err := pipeline.Collisions(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d collisions recorded\n", n)
			return nil
		},
	}
}
