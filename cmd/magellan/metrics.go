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
	"sort"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/ui"
)

// runMetrics implements "magellan metrics [path]": with a path, prints that
// file's precomputed `metrics:file:{path}` row; without one, lists every
// file's metrics ordered by complexity_score descending (a hotspot list).
func runMetrics(ctx context.Context, args []string) error {
	var g globalFlags
	limit := 0
	fs := newCommandFlagSet("metrics", &g)
	fs.IntVar(&limit, "limit", 20, "Maximum number of files to list (hotspot mode only)")
	fs.Parse(args)

	argsJSON, _ := json.Marshal(args)
	a, err := openApp(ctx, &g, string(argsJSON))
	if err != nil {
		return err
	}
	defer a.finish(ctx, model.OutcomeSuccess, indexCounts{}, nil)

	if path := fs.Arg(0); path != "" {
		metrics, ok, err := getFileMetrics(ctx, a, path)
		if err != nil {
			return err
		}
		if !ok {
			return a.emit(map[string]any{"path": path, "found": false}, func() {
				ui.Warningf("no metrics recorded for %s", path)
			})
		}
		return a.emit(metrics, func() {
			ui.Header("File metrics: " + path)
			printFileMetrics(metrics)
		})
	}

	hotspots, err := hotspotFileMetrics(ctx, a, limit)
	if err != nil {
		return err
	}
	return a.emit(map[string]any{"hotspots": hotspots}, func() {
		ui.Header("Hotspots (by complexity_score)")
		for _, m := range hotspots {
			fmt.Printf("  %-8.2f %s\n", m.ComplexityScore, m.Path)
		}
	})
}

type fileMetricsEntry struct {
	Path string `json:"path"`
	model.FileMetrics
}

func getFileMetrics(ctx context.Context, a *app, path string) (fileMetricsEntry, bool, error) {
	val, ok, err := a.backend.Get(ctx, 0, []byte("metrics:file:"+path))
	if err != nil || !ok {
		return fileMetricsEntry{}, false, err
	}
	var fm model.FileMetrics
	if err := json.Unmarshal(val.JSON, &fm); err != nil {
		return fileMetricsEntry{}, false, err
	}
	return fileMetricsEntry{Path: path, FileMetrics: fm}, true, nil
}

// hotspotFileMetrics scans every `metrics:file:` row and returns the top
// `limit` by complexity_score, mirroring the original's get_hotspots query
// without its min_loc/min_fan_in/min_fan_out filters (no CLI consumer here
// needs them yet).
func hotspotFileMetrics(ctx context.Context, a *app, limit int) ([]fileMetricsEntry, error) {
	entries, err := a.backend.PrefixScan(ctx, 0, []byte("metrics:file:"))
	if err != nil {
		return nil, err
	}

	out := make([]fileMetricsEntry, 0, len(entries))
	for _, e := range entries {
		var fm model.FileMetrics
		if err := json.Unmarshal(e.Value.JSON, &fm); err != nil {
			continue
		}
		path := string(e.Key[len("metrics:file:"):])
		out = append(out, fileMetricsEntry{Path: path, FileMetrics: fm})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ComplexityScore > out[j].ComplexityScore })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func printFileMetrics(m fileMetricsEntry) {
	fmt.Printf("  Symbols:    %s\n", ui.CountText(m.SymbolCount))
	fmt.Printf("  LOC:        %d\n", m.LOC)
	fmt.Printf("  Fan-in:     %d\n", m.FanIn)
	fmt.Printf("  Fan-out:    %d\n", m.FanOut)
	fmt.Printf("  Complexity: %.2f\n", m.ComplexityScore)
}
