package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mishra-lab/scheduler/core/runlog"
)

var (
	histSince   time.Duration
	histOutcome string
	histLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().DurationVar(&histSince, "since", 0, "only runs started within this duration")
	historyCmd.Flags().StringVar(&histOutcome, "outcome", "", "filter by outcome (optimal, infeasible, config_error, solver_error)")
	historyCmd.Flags().IntVar(&histLimit, "limit", 20, "maximum number of runs")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Disabled {
		return fmt.Errorf("run history is disabled")
	}
	store, err := runlog.Open(cfg.History.Options())
	if err != nil {
		return err
	}
	defer store.Close()

	q := runlog.RunQuery{Outcome: histOutcome, Limit: histLimit}
	if histSince > 0 {
		q.Since = time.Now().Add(-histSince)
	}
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tOUTCOME\tBACKEND\tOBJECTIVE\tDURATION")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4f\t%s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Outcome, r.Backend, r.Objective, r.Duration.Round(time.Millisecond))
	}
	return w.Flush()
}
