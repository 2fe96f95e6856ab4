package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mishra-lab/scheduler/app"
	"github.com/mishra-lab/scheduler/core/mip"
	"github.com/mishra-lab/scheduler/core/scheduler"
	"github.com/mishra-lab/scheduler/infra/logger"
	"github.com/mishra-lab/scheduler/pkg/export"
)

var modelOut string

var exportModelCmd = &cobra.Command{
	Use:   "export-model",
	Short: "Write the built model in LP format",
	RunE:  runExportModel,
}

func init() {
	exportModelCmd.Flags().StringVarP(&modelOut, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportModelCmd)
}

func runExportModel(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New("export-model")
	in, err := app.LoadInputs(cfg, log)
	if err != nil {
		return err
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
	write := func(w io.Writer) error { return mip.WriteLP(w, s.Model()) }
	if modelOut == "" || modelOut == "-" {
		return write(cmd.OutOrStdout())
	}
	if err := export.WriteFile(modelOut, write); err != nil {
		return err
	}
	log.Infof("model written to %s", modelOut)
	return nil
}

