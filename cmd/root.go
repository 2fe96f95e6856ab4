// Package cmd implements the scheduler command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mishra-lab/scheduler/config"
	"github.com/mishra-lab/scheduler/core/scheduler"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "scheduler",
	Short:         "On-call block and weekend scheduler",
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// hint appends advice for the errors a user can act on.
func hint(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, scheduler.ErrInfeasible):
		return fmt.Errorf("%w (try adjusting min/max values or disabling constraints)", err)
	case scheduler.IsSolverUnavailable(err):
		return fmt.Errorf("%w (solver not found: set solver.cbc_path or use backend bnb)", err)
	case errors.Is(err, scheduler.ErrLimitReached):
		return fmt.Errorf("%w (raise solver.node_limit or solver.time_limit_seconds)", err)
	}
	return err
}
