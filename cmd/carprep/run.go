package main

import (
	"context"
	"fmt"

	"carprep/internal/config"
	"carprep/internal/pipeline"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runCmd(g *globals) *cobra.Command {
	var schedule string

	c := &cobra.Command{
		Use:   "run",
		Short: "Prepare the final dataset once, or on a cron schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := g.logger(cmd)
			cfg, err := g.load()
			if err != nil {
				return err
			}
			setupMetrics(cfg.Metrics, cfg.Job, log)

			if schedule == "" {
				return runOnce(cmd.Context(), cfg, log)
			}
			return runScheduled(cmd.Context(), cfg, schedule, log)
		},
	}
	c.Flags().StringVar(&schedule, "schedule", "", "cron spec (e.g. \"0 3 * * *\"); runs until interrupted")
	return c
}

func runOnce(ctx context.Context, cfg config.Pipeline, log *logrus.Logger) error {
	defer flushMetrics(log)
	res, err := pipeline.Run(ctx, cfg, log)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"run_id":     res.RunID,
		"sources":    len(res.Sources),
		"merged":     res.MergedRows,
		"rows":       res.Rows,
		"loaded":     res.Loaded,
		"vocabulary": res.VocabularyPath,
	}).Info("dataset published")
	return nil
}

// runScheduled fires runOnce on spec. A tick that arrives while the previous
// run is still writing is skipped.
func runScheduled(ctx context.Context, cfg config.Pipeline, spec string, log *logrus.Logger) error {
	clog := cron.PrintfLogger(log)
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(clog),
		cron.Recover(clog),
	))
	if _, err := c.AddFunc(spec, func() {
		if err := runOnce(ctx, cfg, log); err != nil {
			log.WithError(err).Error("scheduled run failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	log.WithField("schedule", spec).Info("scheduler started")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("scheduler stopped")
	return nil
}
