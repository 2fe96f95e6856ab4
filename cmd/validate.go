package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mishra-lab/scheduler/app"
	"github.com/mishra-lab/scheduler/core/scheduler"
	"github.com/mishra-lab/scheduler/infra/logger"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and inputs and build the model without solving",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New("validate")
	in, err := app.LoadInputs(cfg, log)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	issues := in.Roster.CapacityIssues(cfg.Scheduler.NumBlocks)
	for _, issue := range issues {
		fmt.Fprintln(out, "warning:", issue)
	}
	s, err := scheduler.New(in.Roster, cfg.Scheduler, nil, log)
	if err != nil {
		return err
	}
	if err := s.SetAvailability(in.Availability); err != nil {
		return err
	}
	s.SetLongWeekends(in.LongWeekends)
	if err := s.Build(); err != nil {
		return err
	}
	st := s.Stats()
	fmt.Fprintf(out, "%d clinicians, %d divisions, %d blocks\n", len(in.Roster.Clinicians), len(in.Roster.Divisions), cfg.Scheduler.NumBlocks)
	fmt.Fprintf(out, "%d variables (%d block, %d weekend, %d adjacency), %d constraints\n",
		st.Variables, st.BlockVars, st.WeekendVars, st.AdjacencyVars, st.Constraints)
	if len(issues) > 0 {
		return fmt.Errorf("%d capacity issue(s), the model is likely infeasible", len(issues))
	}
	return nil
}
