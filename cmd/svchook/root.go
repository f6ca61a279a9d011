package main

import (
	"github.com/spf13/cobra"

	"github.com/svchook/svchook/internal/config"
	"github.com/svchook/svchook/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the svchook CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "svchook",
		Short: "svchook - a process-isolated service hook dispatcher",
		Long: `svchook dispatches service lifecycle hooks to plugin executables,
running each plugin in a throwaway worker process and applying the
environment mutations it reports back over a pipe.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewWatchCmd())

	return cmd
}

// addCommonFlags registers the flags shared by every subcommand that
// loads the configuration.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("plugin-dir", "", "plugin directory (default: XDG_DATA_HOME/svchook/plugins)")
	cmd.Flags().String("log-format", "", "log format (json or text)")
	cmd.Flags().String("log-level", "", "log level (debug, info, warn or error)")
}

// loadConfig resolves the effective configuration for a subcommand and
// installs the default logger it selects.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return cfg, err
	}
	logging.SetDefault("svchook", version, cfg.LogFormat, cfg.SlogLevel())
	return cfg, nil
}
