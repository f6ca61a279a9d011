// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svchook/svchook/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultLogFormat, cfg.LogFormat)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, config.DefaultMetricsAddr, cfg.MetricsAddr)
	assert.Equal(t, config.DefaultWatchDebounce, cfg.WatchDebounce)
	assert.NotEmpty(t, cfg.PluginDir)
}

func TestLoad_File(t *testing.T) {
	path := writeConfigFile(t, `
plugin_dir: /opt/hooks
log_format: text
log_level: debug
metrics_addr: ""
watch_debounce: 2s
`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/opt/hooks", cfg.PluginDir)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeConfigFile(t, "plugin_dir: /opt/hooks\nlog_level: debug\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("plugin-dir", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--plugin-dir=/etc/hooks"}))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "/etc/hooks", cfg.PluginDir)
	// Unset flags must not clobber file values.
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*config.Config) {},
		},
		{
			name:    "empty plugin dir",
			mutate:  func(c *config.Config) { c.PluginDir = "" },
			wantErr: "plugin_dir",
		},
		{
			name:    "bad format",
			mutate:  func(c *config.Config) { c.LogFormat = "xml" },
			wantErr: "log_format",
		},
		{
			name:    "bad level",
			mutate:  func(c *config.Config) { c.LogLevel = "loud" },
			wantErr: "log_level",
		},
		{
			name:    "negative debounce",
			mutate:  func(c *config.Config) { c.WatchDebounce = -time.Second },
			wantErr: "watch_debounce",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "warn"
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())

	cfg.LogLevel = "bogus"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
