// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

package plugin

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Registry discovers and holds the ordered list of loaded plugins for one
// plugin directory. Plugins keep their directory-scan order; dispatch
// follows it.
type Registry struct {
	dir     string
	guard   *Guard
	plugins []*Plugin
	loaded  bool
	mu      sync.Mutex
}

// RegistryOption configures a Registry during construction.
type RegistryOption func(*Registry)

// WithGuard sets the reentrancy guard. Defaults to DetectGuard().
func WithGuard(g *Guard) RegistryOption {
	return func(r *Registry) {
		r.guard = g
	}
}

// NewRegistry creates a registry for the given plugin directory. The
// registry starts empty; call Load to populate it.
func NewRegistry(dir string, opts ...RegistryOption) *Registry {
	r := &Registry{dir: dir}
	for _, opt := range opts {
		opt(r)
	}
	if r.guard == nil {
		r.guard = DetectGuard()
	}
	return r
}

// Dir returns the configured plugin directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Guard returns the registry's reentrancy guard.
func (r *Registry) Guard() *Guard {
	return r.guard
}

// Load populates the registry from the plugin directory. Calling it on a
// populated registry unloads everything first, so a reload never
// duplicates handles. Entries whose name starts with '.' are skipped.
// Per-entry failures are logged and skipped; a missing or unreadable
// directory yields an empty registry and no error.
//
// Load is a no-op inside a plugin worker.
func (r *Registry) Load(ctx context.Context) error {
	if r.guard.InWorker() {
		slog.DebugContext(ctx, "skipping plugin load inside plugin worker")
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.unloadLocked()
	r.loaded = true

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		// Zero plugins is a normal configuration; a host without a plugin
		// directory runs with none.
		slog.DebugContext(ctx, "plugin directory unavailable",
			"dir", r.dir,
			"error", err)
		return nil
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		path := filepath.Join(r.dir, entry.Name())
		handle, err := os.Open(path) //nolint:gosec // path is constructed from ReadDir entries
		if err != nil {
			slog.WarnContext(ctx, "cannot open plugin",
				"plugin", entry.Name(),
				"error", err)
			continue
		}

		hook, err := resolveHook(handle, path)
		if err != nil {
			slog.WarnContext(ctx, "plugin has no hook entry point",
				"plugin", entry.Name(),
				"error", err)
			if cerr := handle.Close(); cerr != nil {
				slog.WarnContext(ctx, "cannot release plugin handle",
					"plugin", entry.Name(),
					"error", cerr)
			}
			continue
		}

		r.plugins = append(r.plugins, &Plugin{
			name:   entry.Name(),
			handle: handle,
			hook:   hook,
		})

		slog.InfoContext(ctx, "loaded plugin", "plugin", entry.Name())
	}

	return nil
}

// Unload releases every plugin handle and empties the registry. Safe on an
// already-empty registry.
func (r *Registry) Unload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unloadLocked()
}

func (r *Registry) unloadLocked() {
	for _, p := range r.plugins {
		if err := p.release(); err != nil {
			slog.Warn("cannot release plugin handle",
				"plugin", p.name,
				"error", err)
		}
	}
	r.plugins = nil
	r.loaded = false
}

// Loaded reports whether a Load has completed and not been undone by
// Unload. An empty plugin directory still counts as loaded. Used as the
// readiness signal for health probes.
func (r *Registry) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Plugins returns a snapshot of the loaded plugins in scan order. The
// returned slice is a copy and safe to range over during a reload.
func (r *Registry) Plugins() []*Plugin {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// Len returns the number of loaded plugins.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plugins)
}
