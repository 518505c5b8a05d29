// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package watch implements the filesystem watch pipeline (§4.7): a single
// writer goroutine that reconciles files as fsnotify reports them,
// debounced and drained in sorted batches.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kraklabs/magellan/internal/metrics"
	"github.com/kraklabs/magellan/internal/scanner"
)

// DefaultDebounce is the window events accumulate in before a drain,
// absent an explicit override.
const DefaultDebounce = 500 * time.Millisecond

// shutdownJoinTimeout bounds how long Stop waits for the writer and
// watcher goroutines to exit before giving up.
const shutdownJoinTimeout = 5 * time.Second

// StartMode selects how a Watcher's initial state is populated.
type StartMode string

const (
	// WatchOnly starts watching with no baseline scan; only files changed
	// after Start is called are reconciled.
	WatchOnly StartMode = "watch-only"
	// ScanInitial runs a baseline scanner.Scan before processing fsnotify
	// events, but registers the watch BEFORE the scan starts so an event
	// for a file that changes mid-scan is never lost (§4.7).
	ScanInitial StartMode = "scan-initial"
)

// Reconciler is the one operation the watch pipeline drives: bring the
// graph up to date with one file's current contents. internal/ingest.Engine
// satisfies this (its Reconcile returns an additional Outcome value that
// the watch pipeline itself has no use for).
type Reconciler interface {
	Reconcile(ctx context.Context, root, relPath string) error
}

// ReconcilerFunc adapts a function to the Reconciler interface.
type ReconcilerFunc func(ctx context.Context, root, relPath string) error

func (f ReconcilerFunc) Reconcile(ctx context.Context, root, relPath string) error {
	return f(ctx, root, relPath)
}

// Watcher owns an fsnotify watch over a root directory, debouncing and
// batching file-change events into reconcile calls.
type Watcher struct {
	root       string
	reconciler Reconciler
	debounce   time.Duration
	scanOpts   scanner.Options
	logger     *slog.Logger

	fsw *fsnotify.Watcher

	// dirtyMu guards dirtyPaths. Lock ordering (§4.7): dirtyMu is always
	// acquired before sending on wakeup, never the reverse, so a drain
	// goroutine reading wakeup can never be holding dirtyMu while an
	// event goroutine blocks trying to acquire it.
	dirtyMu   sync.Mutex
	dirtyPaths map[string]struct{}

	// wakeup has capacity 1: a pending wakeup coalesces with any other
	// pending wakeup, so the event-producing side never blocks on it.
	wakeup chan struct{}

	shutdown int32 // atomic flag, set once by Stop

	writerDone  chan struct{}
	watcherDone chan struct{}
}

// Options configures a Watcher.
type Options struct {
	Root       string
	Debounce   time.Duration
	ScanOpts   scanner.Options
	Logger     *slog.Logger
}

// New constructs a Watcher. Call Start to begin watching.
func New(reconciler Reconciler, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		root:        opts.Root,
		reconciler:  reconciler,
		debounce:    debounce,
		scanOpts:    opts.ScanOpts,
		logger:      logger,
		fsw:         fsw,
		dirtyPaths:  make(map[string]struct{}),
		wakeup:      make(chan struct{}, 1),
		writerDone:  make(chan struct{}),
		watcherDone: make(chan struct{}),
	}, nil
}

// Start begins watching per mode. It returns once the watch is registered
// and (for ScanInitial) the baseline scan has been queued; reconciliation
// of queued files happens asynchronously on the writer goroutine.
func (w *Watcher) Start(ctx context.Context, mode StartMode) error {
	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}

	go w.runEventLoop(ctx)
	go w.runWriter(ctx)

	if mode == ScanInitial {
		// The watch is already registered above, so a file changed by
		// another process during this scan still produces an fsnotify
		// event queued behind (or merged with) the scan's own dirty
		// marks, rather than being silently missed.
		results, _, err := scanner.Scan(w.scanOpts, w.logger)
		if err != nil {
			return err
		}
		w.dirtyMu.Lock()
		for _, r := range results {
			w.dirtyPaths[r.Path] = struct{}{}
		}
		w.dirtyMu.Unlock()
		w.nudge()
	}
	return nil
}

// Stop sets the shutdown flag and waits for both goroutines to exit,
// bounded by shutdownJoinTimeout so a stuck reconcile can never hang a
// CLI invocation forever.
func (w *Watcher) Stop() error {
	atomic.StoreInt32(&w.shutdown, 1)
	_ = w.fsw.Close()
	w.nudge()

	deadline := time.After(shutdownJoinTimeout)
	for _, done := range []chan struct{}{w.watcherDone, w.writerDone} {
		select {
		case <-done:
		case <-deadline:
			w.logger.Warn("watch.stop.timeout")
			return nil
		}
	}
	return nil
}

func (w *Watcher) isShuttingDown() bool {
	return atomic.LoadInt32(&w.shutdown) == 1
}

// nudge sends a non-blocking wakeup. Capacity-1 channel: if one is already
// pending, this send is a no-op, which is exactly the coalescing the
// bounded-channel design wants.
func (w *Watcher) nudge() {
	select {
	case w.wakeup <- struct{}{}:
	default:
	}
}

func (w *Watcher) runEventLoop(ctx context.Context) {
	defer close(w.watcherDone)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			metrics.Watch.IncEvent()
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			metrics.Watch.IncError()
			w.logger.Warn("watch.fsnotify.error", "err", err)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
		if ev.Op&fsnotify.Create != 0 {
			_ = w.fsw.Add(ev.Name)
		}
		return
	}

	// dirtyMu is acquired, mutated, released, THEN wakeup is sent: the
	// lock-ordering invariant the watch pipeline must never invert.
	w.dirtyMu.Lock()
	w.dirtyPaths[rel] = struct{}{}
	w.dirtyMu.Unlock()
	w.nudge()
}

func (w *Watcher) runWriter(ctx context.Context) {
	defer close(w.writerDone)
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wakeup:
			if w.isShuttingDown() {
				w.drain(ctx)
				return
			}
			if !pending {
				pending = true
				timer.Reset(w.debounce)
			}
		case <-timerOrNever(timer, pending):
			pending = false
			w.drain(ctx)
			if w.isShuttingDown() {
				return
			}
		}
	}
}

// timerOrNever returns timer.C when a debounce is pending, or a nil
// channel (which blocks forever in a select) otherwise, so the writer
// never fires a drain on a timer nobody armed.
func timerOrNever(timer *time.Timer, pending bool) <-chan time.Time {
	if pending {
		return timer.C
	}
	return nil
}

// drain takes a sorted snapshot of dirtyPaths, clears it, and reconciles
// each path in order, so two runs over the same dirty set always process
// files in the same sequence.
func (w *Watcher) drain(ctx context.Context) {
	w.dirtyMu.Lock()
	if len(w.dirtyPaths) == 0 {
		w.dirtyMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.dirtyPaths))
	for p := range w.dirtyPaths {
		paths = append(paths, p)
	}
	w.dirtyPaths = make(map[string]struct{})
	w.dirtyMu.Unlock()

	metrics.Watch.ObserveDrain(len(paths))
	sort.Strings(paths)
	for _, p := range paths {
		if err := w.reconciler.Reconcile(ctx, w.root, p); err != nil {
			w.logger.Warn("watch.reconcile.error", "path", p, "err", err)
		}
	}
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if base := filepath.Base(path); base == ".git" || base == ".magellan" || base == "node_modules" {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}
