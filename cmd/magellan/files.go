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
	"sort"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/ui"
)

// runFiles implements "magellan files": lists every indexed File node.
func runFiles(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("files", &g)
	fs.Parse(args)

	argsJSON, _ := json.Marshal(args)
	a, err := openApp(ctx, &g, string(argsJSON))
	if err != nil {
		return err
	}
	defer a.finish(ctx, model.OutcomeSuccess, indexCounts{}, nil)

	snap, err := a.backend.Snapshot(ctx)
	if err != nil {
		return err
	}
	defer a.backend.ReleaseSnapshot(snap)

	ids, err := a.backend.EntityIDs(ctx, snap, model.KindFile)
	if err != nil {
		return err
	}

	type fileEntry struct {
		Path string `json:"path"`
		Hash string `json:"content_hash"`
	}
	entries := make([]fileEntry, 0, len(ids))
	for _, id := range ids {
		n, err := a.backend.GetNode(ctx, snap, id)
		if err != nil {
			continue
		}
		fp, _ := n.Payload.(*model.FilePayload)
		hash := ""
		if fp != nil {
			hash = fp.ContentHash
		}
		entries = append(entries, fileEntry{Path: n.FilePath, Hash: hash})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	return a.emit(map[string]any{"files": entries}, func() {
		ui.Header("Indexed files")
		ui.Info(ui.CountText(len(entries)) + " files")
		for _, e := range entries {
			ui.Info("  " + e.Path)
		}
	})
}
