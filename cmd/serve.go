package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mishra-lab/scheduler/api"
	"github.com/mishra-lab/scheduler/core/runlog"
	"github.com/mishra-lab/scheduler/infra/logger"
	"github.com/mishra-lab/scheduler/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run history, schedules and metrics over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Disabled {
		return fmt.Errorf("serve needs the run history")
	}
	if cfg.API.Listen == "" {
		return fmt.Errorf("api.listen is not set")
	}
	store, err := runlog.Open(cfg.History.Options())
	if err != nil {
		return err
	}
	defer store.Close()

	log := logger.New("api")
	srv := &http.Server{
		Addr:              cfg.API.Listen,
		Handler:           api.NewRouter(store, cfg.API.Token, metrics.Handler(prometheus.DefaultGatherer)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api shutdown: %v", err)
		}
	}()
	log.Infof("listening on %s", cfg.API.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
