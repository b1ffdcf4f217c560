package main

import (
	"github.com/spf13/cobra"

	"github.com/MrEthical07/goSession/internal/config"
)

// NewRootCmd creates the gosession command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gosession",
		Short: "Session-based authentication site",
		Long: `gosession serves sign-up, login and security-question password recovery
backed by Redis sessions and a PostgreSQL user table.`,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	return cmd
}

// loadConfig merges defaults, the --config file, the --env-file file, the
// environment and explicitly set flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	file, _ := flags.GetString("config")
	envFile, _ := flags.GetString("env-file")
	return config.Load(config.Options{File: file, EnvFile: envFile, Flags: flags})
}
