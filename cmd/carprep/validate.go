package main

import (
	"fmt"

	"carprep/internal/config"

	"github.com/spf13/cobra"
)

func validateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the pipeline configuration and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			issues := config.ValidatePipeline(cfg)
			for _, iss := range issues {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid: %s", g.cfgPath)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %s\n", g.cfgPath)
			return nil
		},
	}
}
