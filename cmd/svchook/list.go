// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/svchook/svchook/internal/plugin"
)

// pluginListing is the document emitted by the list subcommand.
type pluginListing struct {
	Dir     string   `yaml:"dir"`
	Plugins []string `yaml:"plugins"`
}

// NewListCmd creates the list subcommand.
func NewListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the plugins that would receive hooks",
		Long: `List the plugin executables found in the plugin directory, in the
order hooks are dispatched to them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			reg := plugin.NewRegistry(cfg.PluginDir)
			if err := reg.Load(cmd.Context()); err != nil {
				return fmt.Errorf("load plugins: %w", err)
			}
			defer reg.Unload()

			listing := pluginListing{Dir: cfg.PluginDir, Plugins: []string{}}
			for _, p := range reg.Plugins() {
				listing.Plugins = append(listing.Plugins, p.Name())
			}

			switch format {
			case "text":
				for _, name := range listing.Plugins {
					cmd.Println(name)
				}
				return nil
			case "yaml":
				out, err := yaml.Marshal(listing)
				if err != nil {
					return fmt.Errorf("marshal listing: %w", err)
				}
				cmd.Print(string(out))
				return nil
			default:
				return fmt.Errorf("invalid format %q: must be 'text' or 'yaml'", format)
			}
		},
	}

	addCommonFlags(cmd)
	cmd.Flags().StringVar(&format, "format", "text", "output format (text or yaml)")

	return cmd
}
