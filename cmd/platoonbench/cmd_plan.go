package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the expanded run table without executing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCampaign(cmd)
			if err != nil {
				return err
			}
			b, err := newBuilder(c)
			if err != nil {
				return err
			}
			runs, err := b.Plan()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCENARIO\tRUN\tREP\tVARIABLES\tVECTOR FILE")
			for _, pr := range runs {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
					pr.Scenario, pr.RunNumber, pr.Repetition, pr.Label, pr.VectorFile)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d runs planned\n", len(runs))
			return nil
		},
	}
}
