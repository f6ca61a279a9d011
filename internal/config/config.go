// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

// Package config loads svchook configuration from defaults, an optional
// YAML file, and command-line flags, in that precedence order.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/svchook/svchook/internal/xdg"
)

// Defaults for optional settings.
const (
	DefaultLogFormat     = "json"
	DefaultLogLevel      = "info"
	DefaultMetricsAddr   = "127.0.0.1:9644"
	DefaultWatchDebounce = 500 * time.Millisecond
)

// Config holds svchook settings.
type Config struct {
	// PluginDir is the directory scanned for plugin executables.
	PluginDir string `koanf:"plugin_dir"`
	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log_format"`
	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string `koanf:"log_level"`
	// MetricsAddr is the metrics/health HTTP address; empty disables it.
	MetricsAddr string `koanf:"metrics_addr"`
	// WatchDebounce is the settle time between a plugin directory change
	// and the reload it triggers.
	WatchDebounce time.Duration `koanf:"watch_debounce"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PluginDir:     xdg.PluginsDir(),
		LogFormat:     DefaultLogFormat,
		LogLevel:      DefaultLogLevel,
		MetricsAddr:   DefaultMetricsAddr,
		WatchDebounce: DefaultWatchDebounce,
	}
}

// Load builds the configuration. path selects the config file; when empty
// the default file is used if it exists. flags, when non-nil, override
// file values (flag names map to keys with dashes as underscores).
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path == "" {
		if def := xdg.ConfigFile(); fileExists(def) {
			path = def
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return cfg, fmt.Errorf("config: load flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.PluginDir == "" {
		return fmt.Errorf("plugin_dir is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := c.slogLevel(); err != nil {
		return err
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must not be negative, got %s", c.WatchDebounce)
	}
	return nil
}

// SlogLevel translates LogLevel for the logging setup. Call Validate first;
// an invalid level falls back to info.
func (c *Config) SlogLevel() slog.Level {
	level, err := c.slogLevel()
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) slogLevel() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
