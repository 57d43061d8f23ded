package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gargmohit24/platoonbench/internal/pipeline"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Write the campaign's HTML report",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCampaign(cmd)
			if err != nil {
				return err
			}
			if err := pipeline.Report(cmd.Context(), c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", c.Report.Output)
			return nil
		},
	}
}
