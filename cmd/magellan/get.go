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
	"github.com/kraklabs/magellan/internal/ui"
)

// runGet implements "magellan get <node_id>": fetches one graph node
// regardless of kind.
func runGet(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("get", &g)
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 1 {
		return errors.NewFilesystemError("usage: magellan get <node_id>", "missing node_id argument", "pass a numeric node id", nil)
	}
	id, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return errors.NewFilesystemError("invalid node_id", err.Error(), "pass a numeric node id", err)
	}

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

	node, err := a.backend.GetNode(ctx, snap, id)
	if err != nil {
		return a.emit(map[string]any{"found": false, "id": id}, func() {
			ui.Warningf("no node with id %d", id)
		})
	}

	return a.emit(map[string]any{"found": true, "node": node}, func() {
		ui.Header("Node")
		printNode(node)
	})
}
