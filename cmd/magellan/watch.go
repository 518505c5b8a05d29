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

package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/kraklabs/magellan/internal/ingest"
	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/parserpool"
	"github.com/kraklabs/magellan/internal/ui"
	"github.com/kraklabs/magellan/internal/watch"
)

// runWatch implements "magellan watch": a baseline scan followed by a live
// fsnotify watch, running until SIGINT/SIGTERM (§4.7).
func runWatch(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("watch", &g)
	full := fs.Bool("full", true, "Run a baseline scan before watching")
	fs.Parse(args)

	argsJSON, _ := json.Marshal(args)
	a, err := openApp(ctx, &g, string(argsJSON))
	if err != nil {
		return err
	}

	engine := ingest.New(a.backend, parserpool.New(), a.logger)
	reconciler := watch.ReconcilerFunc(func(ctx context.Context, root, relPath string) error {
		_, err := engine.Reconcile(ctx, root, relPath)
		return err
	})

	w, err := watch.New(reconciler, watch.Options{
		Root:     a.cfg.Root,
		Debounce: a.cfg.Debounce(),
		ScanOpts: a.cfg.ScannerOptions(),
		Logger:   a.logger,
	})
	if err != nil {
		a.finish(ctx, model.OutcomeError, indexCounts{}, err)
		return err
	}

	mode := watch.WatchOnly
	if *full {
		mode = watch.ScanInitial
	}

	ui.Infof("watching %s (debounce %s)", a.cfg.Root, a.cfg.Debounce())
	watchCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := w.Start(watchCtx, mode); err != nil {
		a.finish(ctx, model.OutcomeError, indexCounts{}, err)
		return err
	}

	<-watchCtx.Done()
	ui.Info("shutting down")
	stopErr := w.Stop()
	a.finish(ctx, model.OutcomeSuccess, indexCounts{}, stopErr)
	return stopErr
}
