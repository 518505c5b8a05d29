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

// Package export renders a graph snapshot into JSON, JSONL, DOT, CSV, and
// SCIP, deterministically (§4.9). Every format first collects the filtered
// nodes and edges in memory and then writes them, so memory use grows with
// the size of the exported graph; no format is streamed.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage"
)

// NodeRecord is one exported node, flattened for encoding.
type NodeRecord struct {
	ID       int64         `json:"id"`
	Kind     model.NodeKind `json:"kind"`
	Name     string        `json:"name"`
	FilePath string        `json:"file_path,omitempty"`
	Payload  any           `json:"payload,omitempty"`
}

// EdgeRecord is one exported edge.
type EdgeRecord struct {
	ID   int64          `json:"id"`
	From int64          `json:"from"`
	To   int64          `json:"to"`
	Type model.EdgeType `json:"type"`
}

// Filter narrows an export to a subset of the graph.
type Filter struct {
	FilePath string
	Kind     model.NodeKind
	MaxDepth int // 0 = unlimited, used only by DOT's depth-bounded neighborhood mode
}

// collectNodes gathers every node matching filter, sorted by id so every
// export format emits the same order for the same snapshot.
func collectNodes(ctx context.Context, b storage.Backend, snap storage.SnapshotID, filter Filter) ([]NodeRecord, error) {
	kinds := []model.NodeKind{model.KindFile, model.KindSymbol, model.KindRefernc, model.KindCall, model.KindAstNode, model.KindCfgBlock}
	if filter.Kind != "" {
		kinds = []model.NodeKind{filter.Kind}
	}

	var out []NodeRecord
	for _, kind := range kinds {
		ids, err := b.EntityIDs(ctx, snap, kind)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			n, err := b.GetNode(ctx, snap, id)
			if err != nil {
				continue
			}
			if filter.FilePath != "" && n.FilePath != filter.FilePath {
				continue
			}
			out = append(out, NodeRecord{ID: n.ID, Kind: n.Kind, Name: n.Name, FilePath: n.FilePath, Payload: n.Payload})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func collectEdgesForNodes(ctx context.Context, b storage.Backend, snap storage.SnapshotID, nodeIDs map[int64]bool) ([]EdgeRecord, error) {
	var out []EdgeRecord
	seen := make(map[int64]bool)
	edgeTypes := []model.EdgeType{model.EdgeDefines, model.EdgeReferences, model.EdgeCalls, model.EdgeCaller, model.EdgeContains, model.EdgeParent, model.EdgeCfgSucc}

	for id := range nodeIDs {
		for _, et := range edgeTypes {
			neighbors, err := b.Neighbors(ctx, snap, id, storage.NeighborQuery{Direction: storage.Outgoing, EdgeType: et})
			if err != nil {
				return nil, err
			}
			for _, to := range neighbors {
				if !nodeIDs[to] {
					continue
				}
				// Edge records are reconstructed from neighbor queries,
				// not stored with their own listing API; key is a
				// deterministic (from, to, type) pairing used only here to
				// drop duplicates. EdgeRecord.ID is left zero; output order
				// is (from, type, to).
				key := id<<40 ^ to<<8 ^ int64(edgeTypeIndex(et))
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, EdgeRecord{From: id, To: to, Type: et})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].To < out[j].To
	})
	return out, nil
}

func edgeTypeIndex(et model.EdgeType) int {
	order := []model.EdgeType{model.EdgeDefines, model.EdgeReferences, model.EdgeCalls, model.EdgeCaller, model.EdgeContains, model.EdgeParent, model.EdgeCfgSucc}
	for i, v := range order {
		if v == et {
			return i
		}
	}
	return -1
}

// JSON writes the full filtered snapshot as one JSON object
// {"nodes": [...], "edges": [...]} to w.
func JSON(ctx context.Context, b storage.Backend, snap storage.SnapshotID, filter Filter, w io.Writer) error {
	nodes, err := collectNodes(ctx, b, snap, filter)
	if err != nil {
		return err
	}
	ids := make(map[int64]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	edges, err := collectEdgesForNodes(ctx, b, snap, ids)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Nodes []NodeRecord `json:"nodes"`
		Edges []EdgeRecord `json:"edges"`
	}{Nodes: nodes, Edges: edges})
}

// JSONL writes one JSON object per line, nodes first then edges, each
// line self-describing via a "record_type" field, so a consumer can
// stream-process an arbitrarily large snapshot in O(1) memory.
func JSONL(ctx context.Context, b storage.Backend, snap storage.SnapshotID, filter Filter, w io.Writer) error {
	nodes, err := collectNodes(ctx, b, snap, filter)
	if err != nil {
		return err
	}
	ids := make(map[int64]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	edges, err := collectEdgesForNodes(ctx, b, snap, ids)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	for _, n := range nodes {
		if err := enc.Encode(struct {
			RecordType string `json:"record_type"`
			NodeRecord
		}{"node", n}); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if err := enc.Encode(struct {
			RecordType string `json:"record_type"`
			EdgeRecord
		}{"edge", e}); err != nil {
			return err
		}
	}
	return nil
}

// CSV writes two sections, "nodes" and "edges", each a CSV table preceded
// by a two-field row ("section", name) naming the section.
func CSV(ctx context.Context, b storage.Backend, snap storage.SnapshotID, filter Filter, w io.Writer) error {
	nodes, err := collectNodes(ctx, b, snap, filter)
	if err != nil {
		return err
	}
	ids := make(map[int64]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	edges, err := collectEdgesForNodes(ctx, b, snap, ids)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"section", "nodes"}); err != nil {
		return err
	}
	if err := cw.Write([]string{"id", "kind", "name", "file_path"}); err != nil {
		return err
	}
	for _, n := range nodes {
		if err := cw.Write([]string{strconv.FormatInt(n.ID, 10), string(n.Kind), n.Name, n.FilePath}); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"section", "edges"}); err != nil {
		return err
	}
	if err := cw.Write([]string{"from", "to", "type"}); err != nil {
		return err
	}
	for _, e := range edges {
		if err := cw.Write([]string{strconv.FormatInt(e.From, 10), strconv.FormatInt(e.To, 10), string(e.Type)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
