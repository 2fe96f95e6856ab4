package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mishra-lab/scheduler/core/scheduler"
	"github.com/mishra-lab/scheduler/infra/solver"
)

var constraintsCmd = &cobra.Command{
	Use:   "constraints",
	Short: "List the available constraints and solver backends",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDEFAULT\tDESCRIPTION")
		for _, c := range scheduler.Registered() {
			fmt.Fprintf(w, "%s\t%t\t%s\n", c.Name, c.Default, c.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nsolver backends: %v\n", solver.Types())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(constraintsCmd)
}
