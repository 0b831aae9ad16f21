package main

import (
	"encoding/json"
	"fmt"

	"carprep/internal/monitor"
	"carprep/internal/schema"

	"github.com/spf13/cobra"
)

func monitorCmd(g *globals) *cobra.Command {
	var reference, current, vocabPath string

	c := &cobra.Command{
		Use:   "monitor",
		Short: "Summarize drift between a reference and a current final dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := g.logger(cmd)
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if reference == "" {
				reference = cfg.Monitor.Reference
			}
			if current == "" {
				current = cfg.Output.Path
			}
			if vocabPath == "" {
				vocabPath = cfg.VocabularyPath()
			}
			if reference == "" {
				return fmt.Errorf("no reference dataset: set monitor.reference or --reference")
			}
			setupMetrics(cfg.Metrics, cfg.Job, log)
			defer flushMetrics(log)

			vocab, err := schema.LoadVocabulary(vocabPath)
			if err != nil {
				return err
			}
			ref, err := monitor.LoadDataset(cmd.Context(), reference, log)
			if err != nil {
				return err
			}
			cur, err := monitor.LoadDataset(cmd.Context(), current, log)
			if err != nil {
				return err
			}
			r, err := monitor.Compare(cmd.Context(), ref, cur, monitor.Options{
				Vocab:             vocab,
				PredictionColumn:  cfg.Monitor.PredictionColumn,
				Threshold:         cfg.Monitor.Threshold,
				DistanceThreshold: cfg.Monitor.DistanceThreshold,
				LargeSample:       cfg.Monitor.LargeSample,
			})
			if err != nil {
				return err
			}
			if err := monitor.Publish(cmd.Context(), cfg, r, log.WithField("job", cfg.Job)); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"timestamp":            r.Timestamp,
				"prediction_drift":     r.PredictionDrift,
				"num_drifted_columns":  r.NumDriftedColumns,
				"share_missing_values": r.ShareMissing,
			})
		},
	}
	c.Flags().StringVar(&reference, "reference", "", "reference final dataset (default monitor.reference)")
	c.Flags().StringVar(&current, "current", "", "current final dataset (default output.path)")
	c.Flags().StringVar(&vocabPath, "vocabulary", "", "vocabulary artifact (default output.vocabulary_path)")
	return c
}
