// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

package plugin

import (
	"os"

	"github.com/svchook/svchook/pkg/hookenv"
)

// Guard is the reentrancy latch for plugin machinery. Inside a worker
// process image it reports true, and both loading and dispatch become
// no-ops so a plugin can never recursively drive the host's plugin
// machinery. The latch is one-way for a given process lifetime: a worker
// stays a worker until it exits.
type Guard struct {
	inWorker bool
}

// DetectGuard derives the latch from the worker environment marker the
// dispatcher sets on every worker it spawns.
func DetectGuard() *Guard {
	return &Guard{inWorker: os.Getenv(hookenv.InPluginEnv) != ""}
}

// NewGuard creates a guard with an explicit state. Tests and embedding
// frameworks use this to run independent contexts without process-global
// state.
func NewGuard(inWorker bool) *Guard {
	return &Guard{inWorker: inWorker}
}

// InWorker reports whether this process is executing inside a plugin
// worker. The surrounding framework checks this before re-entering any
// plugin machinery.
func (g *Guard) InWorker() bool {
	return g.inWorker
}
