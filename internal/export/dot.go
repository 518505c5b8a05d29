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

package export

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/emicklei/dot"

	"github.com/kraklabs/magellan/internal/storage"
)

// DOT writes a Graphviz rendering of the filtered snapshot: one cluster
// subgraph per file, nodes labeled "kind: name", edges labeled by type.
// Node and edge iteration order matches collectNodes/collectEdgesForNodes
// (sorted by id), so the emitted DOT text is byte-for-byte stable across
// runs over the same snapshot.
func DOT(ctx context.Context, b storage.Backend, snap storage.SnapshotID, filter Filter, w io.Writer) error {
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

	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "LR")

	clusters := make(map[string]*dot.Graph)
	dotNodes := make(map[int64]dot.Node)

	for _, n := range nodes {
		parent := g
		if n.FilePath != "" {
			cluster, ok := clusters[n.FilePath]
			if !ok {
				cluster = g.Subgraph(n.FilePath, dot.ClusterOption{})
				clusters[n.FilePath] = cluster
			}
			parent = cluster
		}
		label := fmt.Sprintf("%s: %s", n.Kind, n.Name)
		dn := parent.Node(strconv.FormatInt(n.ID, 10)).Label(label)
		dotNodes[n.ID] = dn
	}

	for _, e := range edges {
		from, ok1 := dotNodes[e.From]
		to, ok2 := dotNodes[e.To]
		if !ok1 || !ok2 {
			continue
		}
		g.Edge(from, to).Label(string(e.Type))
	}

	_, err = io.WriteString(w, g.String())
	return err
}
