package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediascraper/internal/scheduler"
	"mediascraper/pkg/config"
	"mediascraper/pkg/httpclient"
	"mediascraper/pkg/logger"
	"mediascraper/pkg/ratelimit"
	"mediascraper/pkg/runner"
	"mediascraper/pkg/store"
)

const shutdownTimeout = 30 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cliFlags())
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithFields(map[string]interface{}{
		"version":     version,
		"environment": cfg.App.Environment,
		"store":       cfg.Store.Driver,
		"interval":    cfg.Schedule.Interval,
	}).Info("mediascraper starting")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := httpclient.New(cfg.HTTP, ratelimit.NewHostLimiter(cfg.HTTP.RequestsPerSecond, cfg.HTTP.Burst), log)
	if err != nil {
		return err
	}

	r := runner.NewFromConfig(cfg, st, client, log)

	if once {
		_, err := r.RunOnce(ctx)
		return err
	}

	return schedule(ctx, cfg, r, log)
}

// scrapeJob runs one firing; a firing skipped because the previous one is
// still running is not a failure
func scrapeJob(r *runner.Runner) scheduler.Job {
	return func(ctx context.Context) error {
		_, err := r.RunOnce(ctx)
		if errors.Is(err, runner.ErrRunInProgress) {
			return nil
		}
		return err
	}
}

// schedule fires the runner every interval until ctx is cancelled
func schedule(ctx context.Context, cfg *config.Config, r *runner.Runner, log logger.Logger) error {
	sched, err := scheduler.New(cfg.Schedule.Timezone, log)
	if err != nil {
		return err
	}

	job := scrapeJob(r)

	if err := sched.AddIntervalJob("scrape", cfg.Schedule.Interval, job); err != nil {
		return err
	}

	if !cfg.App.IsProduction() {
		sched.RunNow("scrape", job)
	}
	sched.Start()
	fields := map[string]interface{}{
		"interval":   cfg.Schedule.Interval,
		"production": cfg.App.IsProduction(),
	}
	for _, j := range sched.ListJobs() {
		if !j.NextRun.IsZero() {
			fields["next_run"] = j.NextRun
		}
	}
	logger.LogComponentStart(log, "scheduler", fields)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("Scheduler did not stop in time")
	}
	logger.LogComponentStop(log, "scheduler", "signal")
	return nil
}
