package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sentryfeed/sentryfeed/internal/scheduler"
)

var serveHealthAddr string

// serveCmd runs the scheduler (C9) continuously: one cron entry per
// catalog source, a background health endpoint, and graceful shutdown on
// SIGINT/SIGTERM. This is the long-running counterpart to run-single/
// run-all, for operators who want sentryfeed to self-schedule instead of
// being triggered by an external cron invoking run-all.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler continuously, crawling every source on its configured cadence",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		schedCfg := scheduler.LoadConfigFromEnv(appv.logger)
		sched := scheduler.New(appv.catalog, appv.crawl, appv.store, appv.pool, appv.logger, schedCfg)
		sched.PrimeFunc = func(ctx context.Context) {
			status := appv.pipeline.Run(ctx)
			if status.Overall == "failed" {
				appv.logger.Error("priming pipeline run failed", slog.String("overall", status.Overall))
			}
		}

		if err := sched.Start(ctx); err != nil {
			return err
		}
		appv.logger.Info("scheduler started", slog.Int("source_count", len(appv.catalog.Sources)))

		health := scheduler.NewHealthServer(sched, appv.logger, serveHealthAddr)
		health.Start()
		appv.logger.Info("health server listening", slog.String("addr", serveHealthAddr))

		<-ctx.Done()
		appv.logger.Info("shutdown signal received, stopping scheduler")
		sched.Stop()
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHealthAddr, "health-addr", ":8090", "address for the liveness/readiness HTTP endpoints")
}
