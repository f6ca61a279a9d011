// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/svchook/svchook/internal/envstream"
)

var tracer = otel.Tracer("svchook/plugin")

// Sentinel errors for programmatic error checking.
var (
	// ErrNilRegistry is returned when constructing a dispatcher without a registry.
	ErrNilRegistry = errors.New("plugin: registry is nil")
	// ErrChannelSetup wraps failures creating a worker's environment channel.
	ErrChannelSetup = errors.New("plugin: environment channel setup failed")
	// ErrSpawn wraps failures starting a plugin worker process.
	ErrSpawn = errors.New("plugin: cannot spawn worker")
)

// Result describes one plugin worker invocation. A nonzero exit status is
// an observation, not an error; hooks are advisory and a failing plugin
// never fails the host.
type Result struct {
	Plugin     string
	Invocation ulid.ULID
	ExitStatus int
	Mutations  int
	Duration   time.Duration
}

// OK reports whether the worker exited zero.
func (r Result) OK() bool {
	return r.ExitStatus == 0
}

// Dispatcher runs hook events through every loaded plugin, one worker
// process at a time. Workers run strictly sequentially and each plugin's
// environment mutations are applied to the host before the next worker
// starts, so later plugins observe earlier plugins' mutations.
type Dispatcher struct {
	reg        *Registry
	guard      *Guard
	spawner    Spawner
	env        envstream.Environ
	newChannel func() (r, w *os.File, err error)
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithSpawner sets the worker process factory. Defaults to direct exec of
// the plugin executable.
func WithSpawner(s Spawner) DispatcherOption {
	return func(d *Dispatcher) {
		d.spawner = s
	}
}

// WithEnviron sets the environment table mutations are applied to.
// Defaults to the process's own environment.
func WithEnviron(env envstream.Environ) DispatcherOption {
	return func(d *Dispatcher) {
		d.env = env
	}
}

// WithChannel sets the factory for the per-invocation environment
// channel pipe. Defaults to os.Pipe.
func WithChannel(fn func() (r, w *os.File, err error)) DispatcherOption {
	return func(d *Dispatcher) {
		d.newChannel = fn
	}
}

// WithDispatchGuard overrides the reentrancy guard. Defaults to the
// registry's guard.
func WithDispatchGuard(g *Guard) DispatcherOption {
	return func(d *Dispatcher) {
		d.guard = g
	}
}

// NewDispatcher creates a dispatcher over the given registry. Returns an
// error if reg is nil.
func NewDispatcher(reg *Registry, opts ...DispatcherOption) (*Dispatcher, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	d := &Dispatcher{
		reg:        reg,
		spawner:    execSpawner{},
		env:        envstream.OSEnviron{},
		newChannel: os.Pipe,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.guard == nil {
		d.guard = reg.Guard()
	}
	return d, nil
}

// Run dispatches one hook event to every loaded plugin in registry order.
// It returns one Result per completed invocation. Channel setup failures
// skip that plugin; a spawn failure aborts the remaining dispatch and is
// returned, with the Results accumulated so far. Run is a no-op inside a
// plugin worker.
//
// There is no cancellation or timeout once dispatch begins: a hung plugin
// hangs the dispatch. The host reads each worker's channel to end of
// stream, so a worker that hands descriptor 3 to a longer-lived child
// stalls the dispatch until that child exits too; script plugins must
// close it in backgrounded children (`exec 3>&-`). Plugins using the Go
// SDK get this automatically.
func (d *Dispatcher) Run(ctx context.Context, hook HookType, value string) (results []Result, err error) {
	if d.guard.InWorker() {
		slog.DebugContext(ctx, "skipping hook dispatch inside plugin worker",
			"hook", string(hook))
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "hook.run",
		trace.WithAttributes(
			attribute.String("hook.type", string(hook)),
			attribute.String("hook.value", value),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
		}
		span.End()
	}()

	RecordHookRun(string(hook))

	plugins := d.reg.Plugins()
	results = make([]Result, 0, len(plugins))
	for _, p := range plugins {
		if p.hook == nil {
			continue
		}

		res, ierr := d.invoke(ctx, p, hook, value)
		if ierr != nil {
			if errors.Is(ierr, ErrChannelSetup) {
				slog.WarnContext(ctx, "skipping plugin",
					"plugin", p.name,
					"hook", string(hook),
					"error", ierr)
				RecordInvocation(p.name, StatusSetupError, 0)
				continue
			}
			// A spawn failure means the host cannot create processes at
			// all right now; invoking further plugins would fail the same
			// way, so the rest of this dispatch is abandoned.
			slog.ErrorContext(ctx, "aborting hook dispatch",
				"plugin", p.name,
				"hook", string(hook),
				"error", ierr)
			err = ierr
			return results, err
		}

		status := StatusOK
		if !res.OK() {
			status = StatusFailed
		}
		RecordInvocation(p.name, status, res.Duration)
		slog.DebugContext(ctx, "plugin hook finished",
			"plugin", p.name,
			"hook", string(hook),
			"invocation", res.Invocation.String(),
			"exit_status", res.ExitStatus,
			"mutations", res.Mutations)

		results = append(results, res)
	}

	return results, nil
}

// invoke runs one plugin worker: pipe, spawn, drain the environment
// channel, reap.
func (d *Dispatcher) invoke(ctx context.Context, p *Plugin, hook HookType, value string) (Result, error) {
	// os.Pipe descriptors are close-on-exec; only the spawner deliberately
	// passes the write end into the worker.
	rd, wr, err := d.newChannel()
	if err != nil {
		return Result{}, fmt.Errorf("%w: pipe: %w", ErrChannelSetup, err)
	}

	id := ulid.Make()
	start := time.Now()

	proc, err := d.spawner.Spawn(p.hook.execPath, hook, value, wr)
	// The host's copy of the write end must close either way; the decode
	// loop below relies on the worker holding the only reference.
	if cerr := wr.Close(); cerr != nil {
		slog.WarnContext(ctx, "cannot close channel write end",
			"plugin", p.name,
			"error", cerr)
	}
	if err != nil {
		rd.Close()
		return Result{}, fmt.Errorf("%w: %s: %w", ErrSpawn, p.name, err)
	}

	slog.DebugContext(ctx, "plugin worker started",
		"plugin", p.name,
		"hook", string(hook),
		"invocation", id.String(),
		"pid", proc.Pid())

	applied := d.applyStream(ctx, p.name, rd)
	rd.Close()

	return Result{
		Plugin:     p.name,
		Invocation: id,
		ExitStatus: proc.Wait(),
		Mutations:  applied,
		Duration:   time.Since(start),
	}, nil
}

// applyStream decodes the environment channel until end of stream,
// applying each mutation to the host environment as it is decoded.
// Returns the number of mutations applied.
func (d *Dispatcher) applyStream(ctx context.Context, pluginName string, r io.Reader) int {
	dec := envstream.NewDecoder(r)
	applied := 0
	for {
		m, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return applied
			}
			if errors.Is(err, envstream.ErrMalformedRecord) {
				slog.WarnContext(ctx, "discarding malformed environment record",
					"plugin", pluginName,
					"error", err)
				continue
			}
			slog.WarnContext(ctx, "environment channel read failed",
				"plugin", pluginName,
				"error", err)
			return applied
		}

		if err := envstream.Apply(d.env, m); err != nil {
			slog.WarnContext(ctx, "cannot apply environment mutation",
				"plugin", pluginName,
				"key", m.Key,
				"error", err)
			continue
		}

		op := MutationSet
		if m.Unset() {
			op = MutationUnset
		}
		RecordEnvMutation(op)
		applied++
	}
}
