package main

import (
	"github.com/spf13/cobra"

	adapters "github.com/ochairo/reposync/internal/domain-adapters/gateways"
	"github.com/ochairo/reposync/internal/domain/entities"
)

// loadConfig resolves configuration in order: defaults, file, environment,
// flags. The file is only required when --config was given explicitly.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*entities.SyncConfig, error) {
	loader := adapters.NewConfigLoader(nil)
	cfg, err := loader.Load(opts.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, usageError(err)
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Root = opts.root
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}

	return cfg, nil
}
