// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the default settle time between a plugin directory
// change and the registry reload it triggers.
const DefaultDebounce = 500 * time.Millisecond

// Watcher keeps a registry in sync with its plugin directory. Directory
// changes trigger a debounced Load; Load's reset semantics make the reload
// safe at any time.
type Watcher struct {
	reg      *Registry
	fsw      *fsnotify.Watcher
	debounce time.Duration
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

// NewWatcher creates a watcher for the registry's plugin directory.
// debounce <= 0 selects DefaultDebounce.
func NewWatcher(reg *Registry, debounce time.Duration) (*Watcher, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("plugin: create fsnotify watcher: %w", err)
	}

	return &Watcher{
		reg:      reg,
		fsw:      fsw,
		debounce: debounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. It fails when the plugin directory cannot be
// watched (a missing directory is a normal zero-plugin configuration, so
// that case is reported rather than silently idle).
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(w.reg.Dir()); err != nil {
		return fmt.Errorf("plugin: watch %s: %w", w.reg.Dir(), err)
	}

	w.started = true
	go w.loop(ctx)
	slog.InfoContext(ctx, "plugin directory watcher started", "dir", w.reg.Dir())
	return nil
}

// Stop ends watching and waits for the reload loop to drain. Safe to call
// whether or not Start succeeded, and safe to call more than once.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stop)
		if w.started {
			<-w.done
		}
	})

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("plugin: close fsnotify watcher: %w", err)
	}
	slog.Info("plugin directory watcher stopped", "dir", w.reg.Dir())
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	// The timer is armed on the first relevant event and re-armed by each
	// further event, so a burst of directory churn reloads once.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Chmod) == 0 {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.WarnContext(ctx, "plugin directory watch error",
				"dir", w.reg.Dir(),
				"error", err)

		case <-timer.C:
			slog.InfoContext(ctx, "plugin directory changed, reloading",
				"dir", w.reg.Dir())
			if err := w.reg.Load(ctx); err != nil {
				slog.ErrorContext(ctx, "plugin reload failed",
					"dir", w.reg.Dir(),
					"error", err)
			}
		}
	}
}
