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
	"strconv"

	"github.com/kraklabs/magellan/internal/errors"
	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage"
	"github.com/kraklabs/magellan/internal/ui"
)

// runLabel implements "magellan label <value> [node_id ...]": with no node
// ids it reads the label:{value} set, otherwise it replaces it.
func runLabel(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("label", &g)
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 1 {
		return errors.NewFilesystemError("usage: magellan label <value> [node_id ...]", "missing label value", "pass a label name, optionally followed by node ids to assign it to", nil)
	}
	value := rest[0]
	nodeIDArgs := rest[1:]

	argsJSON, _ := json.Marshal(args)
	a, err := openApp(ctx, &g, string(argsJSON))
	if err != nil {
		return err
	}
	defer a.finish(ctx, model.OutcomeSuccess, indexCounts{}, nil)

	key := []byte("label:" + value)

	if len(nodeIDArgs) == 0 {
		snap, err := a.backend.Snapshot(ctx)
		if err != nil {
			return err
		}
		defer a.backend.ReleaseSnapshot(snap)

		val, found, err := a.backend.Get(ctx, snap, key)
		if err != nil {
			return err
		}
		var ids []int64
		if found && val.Kind == storage.ValJSON {
			_ = json.Unmarshal(val.JSON, &ids)
		}
		return a.emit(map[string]any{"label": value, "node_ids": ids}, func() {
			ui.Header("Label: " + value)
			ui.Info(ui.CountText(len(ids)) + " nodes")
		})
	}

	ids := make([]int64, 0, len(nodeIDArgs))
	for _, s := range nodeIDArgs {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return errors.NewFilesystemError("invalid node id", s, "pass numeric node ids", nil)
		}
		ids = append(ids, id)
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := a.backend.Put(ctx, key, storage.Value{Kind: storage.ValJSON, JSON: payload}); err != nil {
		return err
	}

	return a.emit(map[string]any{"label": value, "node_ids": ids}, func() {
		ui.Success("labeled " + ui.CountText(len(ids)) + " nodes as " + value)
	})
}
