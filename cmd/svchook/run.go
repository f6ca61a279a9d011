// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/svchook/svchook/internal/config"
	"github.com/svchook/svchook/internal/plugin"
)

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <hook> [value]",
		Short: "Dispatch a hook to every loaded plugin",
		Long: `Dispatch a hook to every plugin in the plugin directory, in name
order. Each plugin runs in its own worker process; environment mutations
it reports are applied before the next plugin starts. Plugin exit
statuses are reported but never propagated as the command's own status.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runHook(cmd.Context(), cmd, cfg, args)
		},
	}

	addCommonFlags(cmd)

	return cmd
}

// runHook loads the plugin directory and dispatches a single hook.
func runHook(ctx context.Context, cmd *cobra.Command, cfg config.Config, args []string) error {
	hook := plugin.HookType(args[0])
	value := ""
	if len(args) == 2 {
		value = args[1]
	}

	reg := plugin.NewRegistry(cfg.PluginDir)
	if err := reg.Load(ctx); err != nil {
		return fmt.Errorf("load plugins: %w", err)
	}
	defer reg.Unload()

	dispatcher, err := plugin.NewDispatcher(reg)
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	results, runErr := dispatcher.Run(ctx, hook, value)
	for _, r := range results {
		cmd.Printf("%s\texit=%d\tmutations=%d\n", r.Plugin, r.ExitStatus, r.Mutations)
	}
	if runErr != nil {
		return fmt.Errorf("dispatch %s: %w", hook, runErr)
	}

	slog.Info("hook dispatched",
		"hook", string(hook),
		"value", value,
		"plugins", len(results),
	)
	return nil
}
