package main

import (
	"fmt"

	"carprep/internal/schema"

	"github.com/spf13/cobra"
)

func schemaCmd(g *globals) *cobra.Command {
	var vocabPath string

	c := &cobra.Command{
		Use:   "schema",
		Short: "Print the final dataset columns fixed by a vocabulary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if vocabPath == "" {
				cfg, err := g.load()
				if err != nil {
					return err
				}
				vocabPath = cfg.VocabularyPath()
			}
			vocab, err := schema.LoadVocabulary(vocabPath)
			if err != nil {
				return err
			}
			for _, col := range vocab.FinalColumns() {
				fmt.Fprintln(cmd.OutOrStdout(), col)
			}
			return nil
		},
	}
	c.Flags().StringVar(&vocabPath, "vocabulary", "", "vocabulary artifact (default from --config)")
	return c
}
