package main

import (
	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/carpool-api/internal/platform/config"
)

// NewRootCmd creates the root command. Configuration flags are persistent so that
// every subcommand resolves configuration the same way.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "carpool-api",
		Short:        "Carpool account and trip-record API",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (YAML)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	return cmd
}

// loadConfig resolves configuration for cmd from defaults, the --config file,
// environment and flags, in increasing precedence.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(cmd.Flags(), path)
}
