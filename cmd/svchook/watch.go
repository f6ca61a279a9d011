// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/svchook/svchook/internal/config"
	"github.com/svchook/svchook/internal/observability"
	"github.com/svchook/svchook/internal/plugin"
	"github.com/svchook/svchook/internal/xdg"
	"github.com/svchook/svchook/pkg/errutil"
)

// NewWatchCmd creates the watch subcommand.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the plugin directory loaded and reload it on change",
		Long: `Watch the plugin directory and reload the plugin set whenever it
changes. When a metrics address is configured, an HTTP server exposes
Prometheus metrics and health endpoints for the process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), cfg)
		},
	}

	addCommonFlags(cmd)
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().Duration("watch-debounce", 0, "settle time before a directory change triggers a reload")

	return cmd
}

// runWatch runs the watch loop until the context is cancelled or a
// termination signal arrives.
func runWatch(ctx context.Context, cfg config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The watcher can only bind to a directory that exists.
	if err := xdg.EnsureDir(cfg.PluginDir); err != nil {
		return fmt.Errorf("create plugin directory: %w", err)
	}

	reg := plugin.NewRegistry(cfg.PluginDir)
	if err := reg.Load(ctx); err != nil {
		return fmt.Errorf("load plugins: %w", err)
	}
	defer reg.Unload()

	watcher, err := plugin.NewWatcher(reg, cfg.WatchDebounce)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		if stopErr := watcher.Stop(); stopErr != nil {
			slog.Debug("error stopping watcher during cleanup", "error", stopErr)
		}
		return fmt.Errorf("watch %s: %w", cfg.PluginDir, err)
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			slog.Warn("error stopping watcher", "error", err)
		}
	}()

	slog.Info("watching plugin directory",
		"dir", cfg.PluginDir,
		"plugins", reg.Len(),
		"debounce", cfg.WatchDebounce,
	)

	// Start observability server if configured
	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, reg.Loaded)
		plugin.RegisterMetrics(obsServer.Registry())

		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors monitors a server's error channel and cancels the
// context on error so that server failures shut the process down.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			errutil.LogError(slog.Default(), "server error, triggering shutdown of "+serverName, err)
			cancel()
		}
	case <-ctx.Done():
	}
}
