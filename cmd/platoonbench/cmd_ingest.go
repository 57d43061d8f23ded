package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gargmohit24/platoonbench/internal/pipeline"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Load recorded vector files into the results database",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCampaign(cmd)
			if err != nil {
				return err
			}
			n, err := pipeline.Ingest(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows ingested\n", n)
			return nil
		},
	}
}
