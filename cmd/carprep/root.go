package main

import (
	"carprep/internal/config"
	"carprep/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type globals struct {
	cfgPath  string
	verbose  bool
	jsonLogs bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:          "carprep",
		Short:        "Used-car listing preparation, drift monitoring and payload checks",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&g.cfgPath, "config", "configs/pipeline.yaml", "pipeline config path (.yaml, .yml or .json)")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logs")
	cmd.PersistentFlags().BoolVar(&g.jsonLogs, "json-logs", false, "log as JSON")

	cmd.AddCommand(
		runCmd(g),
		validateCmd(g),
		monitorCmd(g),
		payloadCmd(g),
		schemaCmd(g),
	)
	return cmd
}

func (g *globals) logger(cmd *cobra.Command) *logrus.Logger {
	return logging.New(logging.Options{
		Verbose: g.verbose,
		JSON:    g.jsonLogs,
		Out:     cmd.ErrOrStderr(),
	})
}

func (g *globals) load() (config.Pipeline, error) {
	return config.Load(g.cfgPath)
}
