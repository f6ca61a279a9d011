// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

package plugin

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// Worker termination statuses that are not plain exit codes.
const (
	// statusFailure is the generic status for a worker that terminated
	// abnormally (killed by a signal).
	statusFailure = 1
	// statusIndeterminate marks a worker whose termination status could
	// not be obtained.
	statusIndeterminate = -1
)

// waitStatus translates a reaped worker's state into an integer status:
// the exit code for a normal exit, statusFailure for a signaled death,
// statusIndeterminate when no state was recovered.
func waitStatus(state *os.ProcessState, err error) int {
	if err != nil {
		// A nonzero exit surfaces as *exec.ExitError; its state still
		// carries the status we want.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			state = exitErr.ProcessState
		} else if state == nil {
			return statusIndeterminate
		}
	}
	if state == nil {
		return statusIndeterminate
	}

	if state.Exited() {
		return state.ExitCode()
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return statusFailure
	}
	return statusIndeterminate
}
