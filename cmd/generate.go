package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mishra-lab/scheduler/app"
	"github.com/mishra-lab/scheduler/infra/logger"
	"github.com/mishra-lab/scheduler/metrics"
)

var (
	genPublish  bool
	genAttempts int
	genYear     int
	genSeed     int64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build and solve a schedule, then export it",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&genPublish, "publish", false, "publish assignments over MQTT")
	generateCmd.Flags().IntVar(&genAttempts, "attempts", 0, "number of shuffled attempts (overrides config)")
	generateCmd.Flags().IntVar(&genYear, "year", 0, "calendar year (overrides config)")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "base shuffle seed (overrides config)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if genAttempts > 0 {
		cfg.Scheduler.Attempts = genAttempts
	}
	if genYear > 0 {
		cfg.Input.Year = genYear
	}
	if cmd.Flags().Changed("seed") {
		cfg.Scheduler.Seed = genSeed
	}
	if genPublish && !cfg.MQTT.Enabled() {
		return fmt.Errorf("--publish needs mqtt.broker in the configuration")
	}

	log := logger.New("generate")
	in, err := app.LoadInputs(cfg, log)
	if err != nil {
		return err
	}
	for _, issue := range in.Roster.CapacityIssues(cfg.Scheduler.NumBlocks) {
		log.Warnf("%s", issue)
	}
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, cfg.Metrics.Listen); err != nil {
				log.Errorf("prom server: %v", err)
			}
		}()
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
	}()

	res, err := svc.Run(ctx, in, genPublish)
	if err != nil {
		return fmt.Errorf("run %s: %w", res.RunID, hint(err))
	}
	s := res.Schedule
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: objective %.4f (blocks %.4f, weekends %.4f, adjacency %.4f)\n",
		res.RunID, s.Objective, s.Breakdown.BlockAppeasement, s.Breakdown.WeekendAppeasement, s.Breakdown.Adjacency)
	return nil
}
