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

package query

import (
	"context"
	"sort"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage"
)

// tarjanState holds the working state of one Tarjan's-algorithm run.
type tarjanState struct {
	index   map[int64]int
	lowlink map[int64]int
	onStack map[int64]bool
	stack   []int64
	next    int
	sccs    [][]int64
}

// Cycles runs Tarjan's strongly connected components algorithm over the
// CALLS subgraph and returns every SCC with more than one member, or a
// single self-referential member (direct recursion), since those are the
// only components that represent a cycle (§4.8).
func (e *Engine) Cycles(ctx context.Context, snap storage.SnapshotID) ([][]int64, error) {
	sccs, err := e.stronglyConnectedComponents(ctx, snap)
	if err != nil {
		return nil, err
	}
	var cycles [][]int64
	for _, scc := range sccs {
		if len(scc) > 1 || isSelfLoop(ctx, e, snap, scc[0]) {
			cycles = append(cycles, scc)
		}
	}
	return cycles, nil
}

func isSelfLoop(ctx context.Context, e *Engine, snap storage.SnapshotID, id int64) bool {
	neighbors, err := e.backend.Neighbors(ctx, snap, id, storage.NeighborQuery{Direction: storage.Outgoing, EdgeType: model.EdgeCalls})
	if err != nil {
		return false
	}
	for _, n := range neighbors {
		if n == id {
			return true
		}
	}
	return false
}

// stronglyConnectedComponents computes Tarjan's SCCs over every Symbol
// node reachable via CALLS edges. There is no teacher-grounded
// implementation for this; it follows the textbook iterative-stack
// formulation to avoid recursion-depth limits on large call graphs.
func (e *Engine) stronglyConnectedComponents(ctx context.Context, snap storage.SnapshotID) ([][]int64, error) {
	ids, err := e.backend.EntityIDs(ctx, snap, model.KindSymbol)
	if err != nil {
		return nil, err
	}

	st := &tarjanState{
		index:   make(map[int64]int),
		lowlink: make(map[int64]int),
		onStack: make(map[int64]bool),
	}

	for _, id := range ids {
		if _, seen := st.index[id]; !seen {
			if err := e.strongConnect(ctx, snap, id, st); err != nil {
				return nil, err
			}
		}
	}

	for _, scc := range st.sccs {
		sort.Slice(scc, func(i, j int) bool { return scc[i] < scc[j] })
	}
	return st.sccs, nil
}

// strongConnect is an explicit-stack port of Tarjan's recursive
// algorithm: each stack frame tracks the node, its neighbor list, and an
// iteration cursor, so a long call chain never overflows the Go stack.
func (e *Engine) strongConnect(ctx context.Context, snap storage.SnapshotID, root int64, st *tarjanState) error {
	type frame struct {
		node      int64
		neighbors []int64
		i         int
	}

	push := func(id int64) {
		st.index[id] = st.next
		st.lowlink[id] = st.next
		st.next++
		st.stack = append(st.stack, id)
		st.onStack[id] = true
	}

	push(root)
	neighbors, err := e.backend.Neighbors(ctx, snap, root, storage.NeighborQuery{Direction: storage.Outgoing, EdgeType: model.EdgeCalls})
	if err != nil {
		return err
	}
	frames := []frame{{node: root, neighbors: neighbors}}

	for len(frames) > 0 {
		f := &frames[len(frames)-1]

		if f.i < len(f.neighbors) {
			w := f.neighbors[f.i]
			f.i++

			if _, seen := st.index[w]; !seen {
				push(w)
				wn, err := e.backend.Neighbors(ctx, snap, w, storage.NeighborQuery{Direction: storage.Outgoing, EdgeType: model.EdgeCalls})
				if err != nil {
					return err
				}
				frames = append(frames, frame{node: w, neighbors: wn})
				continue
			}
			if st.onStack[w] {
				if st.index[w] < st.lowlink[f.node] {
					st.lowlink[f.node] = st.index[w]
				}
			}
			continue
		}

		// All neighbors processed: pop this frame and propagate lowlink
		// to the parent, then close the SCC if this node is its root.
		frames = frames[:len(frames)-1]
		if len(frames) > 0 {
			parent := &frames[len(frames)-1]
			if st.lowlink[f.node] < st.lowlink[parent.node] {
				st.lowlink[parent.node] = st.lowlink[f.node]
			}
		}
		if st.lowlink[f.node] == st.index[f.node] {
			var scc []int64
			for {
				n := len(st.stack) - 1
				w := st.stack[n]
				st.stack = st.stack[:n]
				st.onStack[w] = false
				scc = append(scc, w)
				if w == f.node {
					break
				}
			}
			st.sccs = append(st.sccs, scc)
		}
	}
	return nil
}

// CondensationID returns the stable supernode id for an SCC: the minimum
// node id in the component (§4.8).
func CondensationID(scc []int64) int64 {
	min := scc[0]
	for _, id := range scc[1:] {
		if id < min {
			min = id
		}
	}
	return min
}
