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

	"github.com/kraklabs/magellan/internal/errors"
	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage"
	"github.com/kraklabs/magellan/internal/ui"
)

// runQuery implements "magellan query <display_fqn>": looks a symbol up by
// its cross-crate fully-qualified name via the sym:fqn: KV index and
// returns the resolved node (§6).
func runQuery(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("query", &g)
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 1 {
		return errors.NewFilesystemError("usage: magellan query <display_fqn>", "missing display_fqn argument", "pass the symbol's cross-crate fully-qualified name", nil)
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

	val, found, err := a.backend.Get(ctx, snap, []byte("sym:fqn:"+rest[0]))
	if err != nil {
		return err
	}
	if !found {
		return a.emit(map[string]any{"found": false, "fqn": rest[0]}, func() {
			ui.Warningf("no symbol found for %s", rest[0])
		})
	}

	node, err := findSymbolBySymID(ctx, a.backend, snap, val.Str)
	if err != nil {
		return err
	}
	if node == nil {
		return a.emit(map[string]any{"found": false, "fqn": rest[0], "symbol_id": val.Str}, func() {
			ui.Warningf("symbol_id %s is indexed but its node is missing", val.Str)
		})
	}

	return a.emit(map[string]any{"found": true, "node": node}, func() {
		ui.Header(fmt.Sprintf("Symbol: %s", node.Name))
		printNode(node)
	})
}

// findSymbolBySymID scans Symbol nodes for the one matching symID. The
// sym:fqn: index maps a name to a content-addressed symbol_id, not
// directly to a node id, so one linear pass over Symbol nodes resolves it.
func findSymbolBySymID(ctx context.Context, b storage.Backend, snap storage.SnapshotID, symID string) (*model.Node, error) {
	ids, err := b.EntityIDs(ctx, snap, model.KindSymbol)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		n, err := b.GetNode(ctx, snap, id)
		if err != nil {
			continue
		}
		if sp, ok := n.Payload.(*model.SymbolPayload); ok && sp.SymbolID == symID {
			return n, nil
		}
	}
	return nil, nil
}

func printNode(n *model.Node) {
	fmt.Printf("  ID:        %d\n", n.ID)
	fmt.Printf("  Kind:      %s\n", n.Kind)
	fmt.Printf("  Name:      %s\n", n.Name)
	if n.FilePath != "" {
		fmt.Printf("  File:      %s\n", n.FilePath)
	}
	switch p := n.Payload.(type) {
	case *model.SymbolPayload:
		fmt.Printf("  FQN:       %s\n", p.DisplayFQN)
		fmt.Printf("  SymbolID:  %s\n", p.SymbolID)
		fmt.Printf("  Span:      %d-%d\n", p.Span.Start, p.Span.End)
	case *model.FilePayload:
		fmt.Printf("  Hash:      %s\n", p.ContentHash)
		fmt.Printf("  Indexed:   %s\n", p.LastIndexedAt)
	}
}
