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

	"github.com/kraklabs/magellan/internal/ingest"
	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/parserpool"
	"github.com/kraklabs/magellan/internal/scanner"
	"github.com/kraklabs/magellan/internal/ui"
)

// ScanResult summarizes one baseline scan for --output json/pretty.
type ScanResult struct {
	FilesScanned    int            `json:"files_scanned"`
	FilesReconciled int            `json:"files_reconciled"`
	FilesSkipped    int            `json:"files_skipped"`
	FilesFailed     int            `json:"files_failed"`
	SkipReasons     map[string]int `json:"skip_reasons,omitempty"`
	Errors          []string       `json:"errors,omitempty"`
}

// runScan implements "magellan scan": scanner.Scan followed by one
// ingest.Engine.Reconcile per eligible file, in sorted order (§4.6/§4.5).
func runScan(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("scan", &g)
	fs.Parse(args)

	argsJSON, _ := json.Marshal(args)
	a, err := openApp(ctx, &g, string(argsJSON))
	if err != nil {
		return err
	}

	result := ScanResult{SkipReasons: map[string]int{}}
	var cmdErr error
	defer func() {
		outcome := model.OutcomeSuccess
		if result.FilesFailed > 0 {
			outcome = model.OutcomePartial
		}
		if cmdErr != nil {
			outcome = model.OutcomeError
		}
		a.finish(ctx, outcome, indexCounts{Files: result.FilesReconciled}, cmdErr)
	}()

	files, skips, err := scanner.Scan(a.cfg.ScannerOptions(), a.logger)
	if err != nil {
		cmdErr = err
		return err
	}
	for reason, n := range skips {
		result.SkipReasons[string(reason)] = n
	}
	result.FilesScanned = len(files)

	engine := ingest.New(a.backend, parserpool.New(), a.logger)
	bar := newProgressBar(newProgressConfig(a), int64(len(files)), "Scanning")
	for _, f := range files {
		outcome, err := engine.Reconcile(ctx, a.cfg.Root, f.Path)
		addProgress(bar)
		if err != nil {
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", f.Path, err))
			continue
		}
		if outcome.Skipped {
			result.FilesSkipped++
		} else {
			result.FilesReconciled++
		}
	}

	return a.emit(result, func() {
		ui.Header("Scan complete")
		fmt.Printf("  Scanned:    %s\n", ui.CountText(result.FilesScanned))
		fmt.Printf("  Reconciled: %s\n", ui.CountText(result.FilesReconciled))
		fmt.Printf("  Unchanged:  %s\n", ui.CountText(result.FilesSkipped))
		if result.FilesFailed > 0 {
			ui.Warningf("%d file(s) failed to reconcile", result.FilesFailed)
		} else {
			ui.Success("no errors")
		}
	})
}
