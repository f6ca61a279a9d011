// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

// Package hookenv is the SDK for writing svchook plugins in Go.
//
// A plugin is an executable: the host invokes it once per hook event as
//
//	plugin <hook> <value>
//
// and its exit status is reported back as the hook's integer result. While
// it runs, the plugin may report environment mutations to the host over the
// environment channel, a pipe the host attaches to a well-known descriptor:
//
//	conn, err := hookenv.Open()
//	if err != nil { ... }
//	defer conn.Close()
//	conn.Setenv("RC_SESSION", "1")
//	conn.Unsetenv("RC_STALE")
//
// The host reads the channel to end of stream before reaping the worker,
// so any process that inherits the channel descriptor keeps the host
// waiting until it exits. Open marks the descriptor close-on-exec, which
// covers everything a Go plugin execs afterwards; plugins written as
// shell scripts must close descriptor 3 themselves in any child they
// background (`exec 3>&-`).
package hookenv

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/svchook/svchook/internal/envstream"
)

// Worker ABI contract between the host and plugin processes.
const (
	// InPluginEnv is set in every worker's environment. Its presence marks
	// a process image executing a plugin hook; host machinery re-entered
	// from such a process must stand down.
	InPluginEnv = "SVCHOOK_IN_PLUGIN"

	// ChannelFDEnv names the variable carrying the environment channel
	// descriptor number.
	ChannelFDEnv = "SVCHOOK_ENV_FD"

	// ChannelFD is the descriptor the host attaches the channel write end
	// to in the worker.
	ChannelFD = 3
)

// InWorker reports whether this process is a plugin worker.
func InWorker() bool {
	return os.Getenv(InPluginEnv) != ""
}

// Hook returns the hook type argument the host invoked this worker with.
func Hook() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return ""
}

// Value returns the hook value argument, usually a service name.
func Value() string {
	if len(os.Args) > 2 {
		return os.Args[2]
	}
	return ""
}

// Conn is the plugin side of the environment channel. Mutations are
// buffered; Close flushes them to the host.
type Conn struct {
	f   *os.File
	enc *envstream.Encoder
}

// Open attaches to the environment channel of the current worker. It fails
// when the process was not started by an svchook host.
func Open() (*Conn, error) {
	raw := os.Getenv(ChannelFDEnv)
	if raw == "" {
		return nil, fmt.Errorf("hookenv: %s not set; not running as a plugin worker", ChannelFDEnv)
	}
	fd, err := strconv.Atoi(raw)
	if err != nil || fd < 0 {
		return nil, fmt.Errorf("hookenv: invalid %s value %q", ChannelFDEnv, raw)
	}

	// Processes the plugin itself launches must never inherit the channel,
	// or the host would block on the pipe until they all exit.
	unix.CloseOnExec(fd)

	f := os.NewFile(uintptr(fd), "svchook-env-channel")
	if f == nil {
		return nil, fmt.Errorf("hookenv: descriptor %d is not open", fd)
	}
	return &Conn{f: f, enc: envstream.NewEncoder(f)}, nil
}

// Setenv reports a mutation setting key to value in the host environment.
func (c *Conn) Setenv(key, value string) error {
	return c.enc.Set(key, value)
}

// Unsetenv reports a mutation removing key from the host environment.
// This is distinct from setting an empty value; the host removes the
// variable entirely.
func (c *Conn) Unsetenv(key string) error {
	return c.enc.Unset(key)
}

// Close flushes buffered mutations and closes the channel. The host reads
// the channel to end of stream before reaping the worker, so Close must be
// called before the plugin exits.
func (c *Conn) Close() error {
	if err := c.enc.Flush(); err != nil {
		c.f.Close()
		return err
	}
	if err := c.f.Close(); err != nil {
		return fmt.Errorf("hookenv: close channel: %w", err)
	}
	return nil
}
