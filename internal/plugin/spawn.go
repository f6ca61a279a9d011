// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

package plugin

import (
	"os"
	"os/exec"
	"strconv"

	"github.com/svchook/svchook/pkg/hookenv"
)

// Process is one running plugin worker.
type Process interface {
	// Pid returns the worker's process id.
	Pid() int
	// Wait blocks until the worker is reaped and returns its translated
	// termination status: the exit code for a normal exit, a generic
	// failure status for a signaled death, -1 when no status could be
	// obtained.
	Wait() int
}

// Spawner creates worker processes for plugin invocations.
type Spawner interface {
	// Spawn starts the plugin executable as a hook worker with the
	// environment channel write end attached. The spawner never closes
	// channel; the caller owns both pipe ends.
	Spawn(execPath string, hook HookType, value string, channel *os.File) (Process, error)
}

// execSpawner is the default Spawner. Each invocation execs the plugin
// binary directly:
//
//	plugin <hook> <value>
//
// with the channel on the well-known descriptor, the worker environment
// markers set, and stdout/stderr shared with the host. The Go runtime's
// fork/exec path keeps signals masked across the fork and the exec resets
// caught handlers to their defaults, so the worker starts with default
// dispositions before any plugin code runs.
type execSpawner struct{}

func (execSpawner) Spawn(execPath string, hook HookType, value string, channel *os.File) (Process, error) {
	// Not CommandContext: a dispatch in flight has no cancellation path.
	cmd := exec.Command(execPath, string(hook), value) // #nosec G204 -- execPath resolved from plugin directory entries at load time
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// ExtraFiles[0] becomes descriptor 3 in the worker. Both pipe ends are
	// close-on-exec in the host, so nothing else ever inherits the channel.
	cmd.ExtraFiles = []*os.File{channel}
	cmd.Env = append(os.Environ(),
		hookenv.ChannelFDEnv+"="+strconv.Itoa(hookenv.ChannelFD),
		hookenv.InPluginEnv+"=1",
	)

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() int {
	err := p.cmd.Wait()
	return waitStatus(p.cmd.ProcessState, err)
}
