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
	"github.com/kraklabs/magellan/internal/query"
	"github.com/kraklabs/magellan/internal/ui"
)

func parseNodeID(rest []string, usage string) (int64, error) {
	if len(rest) != 1 {
		return 0, errors.NewFilesystemError(usage, "wrong number of arguments", usage, nil)
	}
	id, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return 0, errors.NewFilesystemError("invalid node id", err.Error(), "pass a numeric node id", err)
	}
	return id, nil
}

// runReachable implements "magellan reachable <node_id> [--reverse]".
func runReachable(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("reachable", &g)
	reverse := fs.Bool("reverse", false, "walk CALLS edges backward (callers) instead of forward (callees)")
	fs.Parse(args)

	id, err := parseNodeID(fs.Args(), "usage: magellan reachable <node_id> [--reverse]")
	if err != nil {
		return err
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

	qe := query.New(a.backend)
	dir := query.Forward
	if *reverse {
		dir = query.Reverse
	}
	ids, err := qe.Reachable(ctx, snap, id, dir)
	if err != nil {
		return err
	}

	return a.emit(map[string]any{"from": id, "reachable": ids}, func() {
		ui.Header("Reachable")
		ui.Info(ui.CountText(len(ids)) + " nodes")
		for _, rid := range ids {
			ui.Info("  " + strconv.FormatInt(rid, 10))
		}
	})
}

// runPaths implements "magellan paths <from> <to> [--max-depth N] [--max-paths N]".
func runPaths(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("paths", &g)
	maxDepth := fs.Int("max-depth", 0, "maximum path depth (0 = unbounded)")
	maxPaths := fs.Int("max-paths", 0, "maximum number of paths to return (0 = unbounded)")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 2 {
		return errors.NewFilesystemError("usage: magellan paths <from> <to>", "wrong number of arguments", "pass two numeric node ids", nil)
	}
	from, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return errors.NewFilesystemError("invalid from id", err.Error(), "pass a numeric node id", err)
	}
	to, err := strconv.ParseInt(rest[1], 10, 64)
	if err != nil {
		return errors.NewFilesystemError("invalid to id", err.Error(), "pass a numeric node id", err)
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

	const unbounded = int(^uint(0) >> 1)
	if *maxDepth == 0 {
		*maxDepth = unbounded
	}
	if *maxPaths == 0 {
		*maxPaths = unbounded
	}

	qe := query.New(a.backend)
	result, err := qe.Paths(ctx, snap, from, to, query.PathOptions{MaxDepth: *maxDepth, MaxPaths: *maxPaths})
	if err != nil {
		return err
	}

	return a.emit(map[string]any{"paths": result.Paths, "bounded_hit": result.BoundedHit}, func() {
		ui.Header("Paths")
		ui.Info(ui.CountText(len(result.Paths)) + " paths")
		if result.BoundedHit {
			ui.Warning("result truncated by --max-depth/--max-paths")
		}
	})
}

// runDeadCode implements "magellan dead-code <root_id> [<root_id> ...]".
func runDeadCode(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("dead-code", &g)
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) == 0 {
		return errors.NewFilesystemError("usage: magellan dead-code <root_id> [<root_id> ...]", "missing root ids", "pass at least one entrypoint symbol node id", nil)
	}
	roots := make([]int64, 0, len(rest))
	for _, r := range rest {
		id, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			return errors.NewFilesystemError("invalid root id", err.Error(), "pass numeric node ids", err)
		}
		roots = append(roots, id)
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

	qe := query.New(a.backend)
	dead, err := qe.DeadCode(ctx, snap, roots)
	if err != nil {
		return err
	}

	return a.emit(map[string]any{"dead": dead}, func() {
		ui.Header("Dead code")
		ui.Info(ui.CountText(len(dead)) + " unreachable symbols")
		for _, id := range dead {
			ui.Info("  " + strconv.FormatInt(id, 10))
		}
	})
}

// runSlice implements "magellan slice <node_id>": forward and backward
// program slice around one symbol.
func runSlice(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("slice", &g)
	fs.Parse(args)

	id, err := parseNodeID(fs.Args(), "usage: magellan slice <node_id>")
	if err != nil {
		return err
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

	qe := query.New(a.backend)
	result, err := qe.Slice(ctx, snap, id)
	if err != nil {
		return err
	}

	return a.emit(map[string]any{"backward": result.Backward, "forward": result.Forward}, func() {
		ui.Header("Slice")
		ui.SubHeader("Backward (callers)")
		ui.Info(ui.CountText(len(result.Backward)))
		ui.SubHeader("Forward (callees)")
		ui.Info(ui.CountText(len(result.Forward)))
	})
}

// runCycles implements "magellan cycles": lists every non-trivial strongly
// connected component in the call graph.
func runCycles(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("cycles", &g)
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

	qe := query.New(a.backend)
	sccs, err := qe.Cycles(ctx, snap)
	if err != nil {
		return err
	}

	return a.emit(map[string]any{"cycles": sccs}, func() {
		ui.Header("Cycles")
		ui.Info(ui.CountText(len(sccs)) + " cycles")
		for _, scc := range sccs {
			ui.Info("  " + strconv.FormatInt(query.CondensationID(scc), 10))
		}
	})
}

// runCondense implements "magellan condense": like cycles, but groups each
// SCC under its condensation id.
func runCondense(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("condense", &g)
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

	qe := query.New(a.backend)
	sccs, err := qe.Cycles(ctx, snap)
	if err != nil {
		return err
	}

	type group struct {
		CondensationID int64   `json:"condensation_id"`
		Members        []int64 `json:"members"`
	}
	groups := make([]group, 0, len(sccs))
	for _, scc := range sccs {
		groups = append(groups, group{CondensationID: query.CondensationID(scc), Members: scc})
	}

	return a.emit(map[string]any{"condensations": groups}, func() {
		ui.Header("Condensation")
		for _, grp := range groups {
			ui.Info("  " + strconv.FormatInt(grp.CondensationID, 10) + ": " + ui.CountText(len(grp.Members)) + " members")
		}
	})
}

// runCollisions implements "magellan collisions": lists file-local FQNs
// shared by more than one symbol, a common source of ambiguous resolution.
func runCollisions(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("collisions", &g)
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

	qe := query.New(a.backend)
	collisions, err := qe.Collisions(ctx, snap)
	if err != nil {
		return err
	}

	return a.emit(map[string]any{"collisions": collisions}, func() {
		ui.Header("Collisions")
		ui.Info(ui.CountText(len(collisions)) + " colliding names")
		for name, ids := range collisions {
			ui.Info("  " + name + ": " + ui.CountText(len(ids)))
		}
	})
}
