package main

import (
	"github.com/spf13/cobra"

	"github.com/gargmohit24/platoonbench/internal/pipeline"
)

func newEdgeDataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edgedata",
		Short: "Export per-edge congestion data as SUMO meandata XML",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCampaign(cmd)
			if err != nil {
				return err
			}
			return pipeline.EdgeData(cmd.Context(), c)
		},
	}
}
