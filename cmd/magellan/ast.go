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

	"github.com/kraklabs/magellan/internal/errors"
	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage"
	"github.com/kraklabs/magellan/internal/ui"
)

// astNodes returns every AstNode node, optionally filtered by file path and
// by payload Kind, sorted by span start. There is no ast:file: KV shortcut
// wired yet, so this walks the AstNode entity set directly.
func astNodes(ctx context.Context, b storage.Backend, snap storage.SnapshotID, filePath, kindFilter string) ([]*model.Node, error) {
	ids, err := b.EntityIDs(ctx, snap, model.KindAstNode)
	if err != nil {
		return nil, err
	}
	nodes := make([]*model.Node, 0, len(ids))
	for _, id := range ids {
		n, err := b.GetNode(ctx, snap, id)
		if err != nil {
			continue
		}
		if filePath != "" && n.FilePath != filePath {
			continue
		}
		if kindFilter != "" {
			p, ok := n.Payload.(*model.AstNodePayload)
			if !ok || p.Kind != kindFilter {
				continue
			}
		}
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		pi, _ := nodes[i].Payload.(*model.AstNodePayload)
		pj, _ := nodes[j].Payload.(*model.AstNodePayload)
		if pi == nil || pj == nil {
			return nodes[i].ID < nodes[j].ID
		}
		return pi.Span.Start < pj.Span.Start
	})
	return nodes, nil
}

// runAst implements "magellan ast <path>": returns every AstNode indexed
// for one file, ordered by span start.
func runAst(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("ast", &g)
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 1 {
		return errors.NewFilesystemError("usage: magellan ast <path>", "missing path argument", "pass a file path relative to the project root", nil)
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

	nodes, err := astNodes(ctx, a.backend, snap, rest[0], "")
	if err != nil {
		return err
	}

	return a.emit(map[string]any{"path": rest[0], "nodes": nodes}, func() {
		ui.Header("AST: " + rest[0])
		ui.Info(ui.CountText(len(nodes)) + " nodes")
	})
}

// runFindAst implements "magellan find-ast <kind> [path]": searches
// AstNode nodes by their grammar kind, optionally scoped to one file.
func runFindAst(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("find-ast", &g)
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 1 || len(rest) > 2 {
		return errors.NewFilesystemError("usage: magellan find-ast <kind> [path]", "wrong number of arguments", "pass an AST node kind and optionally a file path", nil)
	}
	kind := rest[0]
	path := ""
	if len(rest) == 2 {
		path = rest[1]
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

	nodes, err := astNodes(ctx, a.backend, snap, path, kind)
	if err != nil {
		return err
	}

	return a.emit(map[string]any{"kind": kind, "path": path, "nodes": nodes}, func() {
		ui.Header("find-ast: " + kind)
		ui.Info(ui.CountText(len(nodes)) + " matches")
	})
}
