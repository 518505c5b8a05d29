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

// Package query implements the graph query engine algorithms (§4.8):
// reachability, cycle detection, bounded path enumeration, dead-code
// detection, program slicing, collisions, and freshness.
package query

import (
	"context"
	"sort"
	"time"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage"
)

// Engine runs read-only graph algorithms against a Backend snapshot.
type Engine struct {
	backend storage.Backend
}

// New constructs an Engine over backend.
func New(backend storage.Backend) *Engine {
	return &Engine{backend: backend}
}

// Direction mirrors storage.Direction for the CALLS subgraph traversal.
type Direction = storage.Direction

const (
	Forward Direction = storage.Outgoing
	Reverse Direction = storage.Incoming
)

// Reachable performs a BFS over the CALLS subgraph from start in dir,
// returning every symbol node reached, in BFS discovery order.
func (e *Engine) Reachable(ctx context.Context, snap storage.SnapshotID, start int64, dir Direction) ([]int64, error) {
	visited := map[int64]bool{start: true}
	queue := []int64{start}
	var order []int64

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)

		neighbors, err := e.backend.Neighbors(ctx, snap, cur, storage.NeighborQuery{Direction: dir, EdgeType: model.EdgeCalls})
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
	return order, nil
}

// PathResult is the outcome of bounded DFS path enumeration.
type PathResult struct {
	Paths      [][]int64
	BoundedHit bool // true if MaxPaths or MaxDepth cut the search short
}

// PathOptions bounds Paths enumeration.
type PathOptions struct {
	MaxDepth int
	MaxPaths int
}

// Paths enumerates simple (no repeated node) paths from start to end over
// the CALLS subgraph via bounded DFS, stopping once MaxPaths paths are
// found or MaxDepth is exceeded on every branch.
func (e *Engine) Paths(ctx context.Context, snap storage.SnapshotID, start, end int64, opts PathOptions) (PathResult, error) {
	result := PathResult{}
	visited := map[int64]bool{start: true}
	path := []int64{start}

	var dfs func(cur int64) error
	dfs = func(cur int64) error {
		if len(result.Paths) >= opts.MaxPaths {
			result.BoundedHit = true
			return nil
		}
		if len(path) > opts.MaxDepth {
			result.BoundedHit = true
			return nil
		}
		if cur == end {
			cp := make([]int64, len(path))
			copy(cp, path)
			result.Paths = append(result.Paths, cp)
			return nil
		}

		neighbors, err := e.backend.Neighbors(ctx, snap, cur, storage.NeighborQuery{Direction: storage.Outgoing, EdgeType: model.EdgeCalls})
		if err != nil {
			return err
		}
		for _, n := range neighbors {
			if visited[n] {
				continue
			}
			visited[n] = true
			path = append(path, n)
			if err := dfs(n); err != nil {
				return err
			}
			path = path[:len(path)-1]
			visited[n] = false
			if len(result.Paths) >= opts.MaxPaths {
				return nil
			}
		}
		return nil
	}

	if err := dfs(start); err != nil {
		return PathResult{}, err
	}
	return result, nil
}

// DeadCode returns every symbol node not forward-reachable from any of
// roots over the CALLS subgraph (§4.8: complement of the forward-reachable
// set).
func (e *Engine) DeadCode(ctx context.Context, snap storage.SnapshotID, roots []int64) ([]int64, error) {
	reached := make(map[int64]bool)
	for _, r := range roots {
		ids, err := e.Reachable(ctx, snap, r, Forward)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			reached[id] = true
		}
	}

	allSymbols, err := e.backend.EntityIDs(ctx, snap, model.KindSymbol)
	if err != nil {
		return nil, err
	}
	var dead []int64
	for _, id := range allSymbols {
		if !reached[id] {
			dead = append(dead, id)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i] < dead[j] })
	return dead, nil
}

// Slice computes a program slice around a symbol using the call-graph
// fallback (§4.8): backward_slice is the reverse-reachable set, forward
// slice is the forward-reachable set.
type SliceResult struct {
	Backward []int64
	Forward  []int64
}

func (e *Engine) Slice(ctx context.Context, snap storage.SnapshotID, symbol int64) (SliceResult, error) {
	backward, err := e.Reachable(ctx, snap, symbol, Reverse)
	if err != nil {
		return SliceResult{}, err
	}
	forward, err := e.Reachable(ctx, snap, symbol, Forward)
	if err != nil {
		return SliceResult{}, err
	}
	return SliceResult{Backward: backward, Forward: forward}, nil
}

// Collisions groups symbol nodes by their FQN, returning only groups with
// more than one member (two distinct symbols sharing one FQN, e.g. build
// tag variants).
func (e *Engine) Collisions(ctx context.Context, snap storage.SnapshotID) (map[string][]int64, error) {
	ids, err := e.backend.EntityIDs(ctx, snap, model.KindSymbol)
	if err != nil {
		return nil, err
	}
	byFQN := make(map[string][]int64)
	for _, id := range ids {
		n, err := e.backend.GetNode(ctx, snap, id)
		if err != nil {
			continue
		}
		sp, ok := n.Payload.(*model.SymbolPayload)
		if !ok {
			continue
		}
		byFQN[sp.FQN] = append(byFQN[sp.FQN], id)
	}
	for fqn, group := range byFQN {
		if len(group) < 2 {
			delete(byFQN, fqn)
		}
	}
	return byFQN, nil
}

// FreshnessThreshold is the spec's staleness cutoff (§4.8).
const FreshnessThreshold = 300 * time.Second

// IsStale reports whether the graph's most recent File node LastIndexedAt
// is older than FreshnessThreshold. An empty database (no File nodes) is
// never stale.
func (e *Engine) IsStale(ctx context.Context, snap storage.SnapshotID, now time.Time) (bool, error) {
	ids, err := e.backend.EntityIDs(ctx, snap, model.KindFile)
	if err != nil {
		return false, err
	}
	if len(ids) == 0 {
		return false, nil
	}
	var newest time.Time
	for _, id := range ids {
		n, err := e.backend.GetNode(ctx, snap, id)
		if err != nil {
			continue
		}
		fp, ok := n.Payload.(*model.FilePayload)
		if !ok {
			continue
		}
		if fp.LastIndexedAt.After(newest) {
			newest = fp.LastIndexedAt
		}
	}
	return now.Sub(newest) > FreshnessThreshold, nil
}
