// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

// Package plugin implements discovery and process-isolated dispatch of
// lifecycle hook plugins. Plugins are executables in a configured
// directory; each hook event runs every plugin in a throwaway worker
// process and applies the environment mutations it reports back over the
// environment channel.
package plugin

import (
	"fmt"
	"io/fs"
	"os"
)

// HookType identifies a lifecycle event. The taxonomy is owned by the
// surrounding framework; this package forwards the value to plugins
// unmodified and attaches no meaning to it.
type HookType string

// Hook is the invocation capability resolved for a plugin at load time.
type Hook struct {
	execPath string
}

// Plugin is one loaded extension module. The name is descriptive only;
// plugins are never merged or deduplicated by name.
type Plugin struct {
	name   string
	handle *os.File
	hook   *Hook
}

// Name returns the plugin's discovered file name.
func (p *Plugin) Name() string {
	return p.name
}

// resolveHook resolves the hook capability for an opened plugin entry.
// Absence of the capability is a normal "this entry does not participate"
// outcome, reported as an error for the loader to log and skip.
func resolveHook(handle *os.File, path string) (*Hook, error) {
	info, err := handle.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	mode := info.Mode()
	if !mode.IsRegular() {
		return nil, fmt.Errorf("not a regular file (%s)", mode.Type())
	}
	if mode.Perm()&0o111 == 0 {
		return nil, fmt.Errorf("no execute permission (%s)", fs.FileMode(mode.Perm()))
	}
	return &Hook{execPath: path}, nil
}

// release closes the plugin's handle. Safe to call exactly once.
func (p *Plugin) release() error {
	return p.handle.Close()
}
