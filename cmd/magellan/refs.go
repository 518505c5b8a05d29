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

// runRefs implements "magellan refs <symbol_id>": lists Reference nodes
// resolved against the given Symbol node id.
func runRefs(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("refs", &g)
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 1 {
		return errors.NewFilesystemError("usage: magellan refs <symbol_node_id>", "missing symbol_node_id argument", "pass the numeric node id from `magellan query`", nil)
	}
	symID, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return errors.NewFilesystemError("invalid symbol_node_id", err.Error(), "pass a numeric node id", err)
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

	refNodeIDs, err := a.backend.Neighbors(ctx, snap, symID, storage.NeighborQuery{Direction: storage.Incoming, EdgeType: model.EdgeReferences})
	if err != nil {
		return err
	}

	nodes := make([]*model.Node, 0, len(refNodeIDs))
	for _, id := range refNodeIDs {
		n, err := a.backend.GetNode(ctx, snap, id)
		if err != nil {
			continue
		}
		nodes = append(nodes, n)
	}

	return a.emit(map[string]any{"symbol_node_id": symID, "references": nodes}, func() {
		ui.Header("References")
		if len(nodes) == 0 {
			ui.Info("no references found")
			return
		}
		for _, n := range nodes {
			printNode(n)
		}
	})
}
