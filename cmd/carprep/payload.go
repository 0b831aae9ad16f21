package main

import (
	"encoding/json"
	"io"
	"os"

	"carprep/internal/schema"
	"carprep/internal/serving"

	"github.com/spf13/cobra"
)

func payloadCmd(g *globals) *cobra.Command {
	var vocabPath string

	c := &cobra.Command{
		Use:   "payload [file]",
		Short: "Decode a prediction payload into the model feature vector",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			var body []byte
			if len(args) == 1 && args[0] != "-" {
				body, err = os.ReadFile(args[0])
			} else {
				body, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			features, err := serving.Decoder{Vocab: vocab}.Decode(body)
			if err != nil {
				return err
			}
			out := make(map[string]float64, len(features))
			for i, col := range vocab.FeatureColumns() {
				out[col] = features[i]
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	c.Flags().StringVar(&vocabPath, "vocabulary", "", "vocabulary artifact (default from --config)")
	return c
}
