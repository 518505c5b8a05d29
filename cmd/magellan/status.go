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
	"fmt"
	"time"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/query"
	"github.com/kraklabs/magellan/internal/ui"
)

// StatusResult is "magellan status"'s --output json/pretty payload.
type StatusResult struct {
	DBPath    string                  `json:"db_path"`
	Files     int                     `json:"files"`
	Symbols   int                     `json:"symbols"`
	Stale     bool                    `json:"stale"`
	Recent    []*model.ExecutionRecord `json:"recent_executions"`
}

// runStatus implements "magellan status": entity counts plus recent
// execlog activity (§3.1/§4.8 IsStale).
func runStatus(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("status", &g)
	fs.Parse(args)

	argsJSON, _ := json.Marshal(args)
	a, err := openApp(ctx, &g, string(argsJSON))
	if err != nil {
		return err
	}
	var cmdErr error
	defer func() {
		outcome := model.OutcomeSuccess
		if cmdErr != nil {
			outcome = model.OutcomeError
		}
		a.finish(ctx, outcome, indexCounts{}, cmdErr)
	}()

	snap, err := a.backend.Snapshot(ctx)
	if err != nil {
		cmdErr = err
		return err
	}
	defer a.backend.ReleaseSnapshot(snap)

	qe := query.New(a.backend)
	files, err := a.backend.EntityIDs(ctx, snap, model.KindFile)
	if err != nil {
		cmdErr = err
		return err
	}
	symbols, err := a.backend.EntityIDs(ctx, snap, model.KindSymbol)
	if err != nil {
		cmdErr = err
		return err
	}
	stale, err := qe.IsStale(ctx, snap, time.Now())
	if err != nil {
		cmdErr = err
		return err
	}
	recent, err := a.recorder.Recent(ctx, snap)
	if err != nil {
		cmdErr = err
		return err
	}
	if len(recent) > 10 {
		recent = recent[:10]
	}

	result := StatusResult{
		DBPath:  a.cfg.DBPath,
		Files:   len(files),
		Symbols: len(symbols),
		Stale:   stale,
		Recent:  recent,
	}

	return a.emit(result, func() {
		ui.Header("magellan status")
		fmt.Printf("  Database:  %s\n", result.DBPath)
		fmt.Printf("  Files:     %s\n", ui.CountText(result.Files))
		fmt.Printf("  Symbols:   %s\n", ui.CountText(result.Symbols))
		if result.Stale {
			ui.Warning("index is stale (no reconcile in the freshness window)")
		} else {
			ui.Success("index is fresh")
		}
		if len(result.Recent) > 0 {
			fmt.Println()
			ui.SubHeader("Recent executions:")
			for _, r := range result.Recent {
				fmt.Printf("  %s  %-8s  %s\n", r.StartedAt.Format(time.RFC3339), r.Outcome, r.ExecutionID)
			}
		}
	})
}
