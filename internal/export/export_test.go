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
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage/nativestore"
)

func seedGraph(t *testing.T) (*nativestore.Backend, int64, int64) {
	t.Helper()
	ctx := context.Background()
	b, err := nativestore.Open(ctx, filepath.Join(t.TempDir(), "graph.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	fileID, err := b.InsertNode(ctx, model.KindFile, "a.go", "a.go", &model.FilePayload{Path: "a.go"})
	require.NoError(t, err)
	symID, err := b.InsertNode(ctx, model.KindSymbol, "helper", "a.go", &model.SymbolPayload{
		Name: "helper", FQN: "helper", DisplayFQN: "a.go::helper", SymbolID: "deadbeefdeadbeefdeadbeefdeadbeef",
		LineCol: model.LineCol{StartLine: 1, StartCol: 0, EndLine: 3, EndCol: 1},
	})
	require.NoError(t, err)
	_, err = b.InsertEdge(ctx, fileID, symID, model.EdgeDefines, nil)
	require.NoError(t, err)
	return b, fileID, symID
}

func TestJSON_Deterministic(t *testing.T) {
	b, _, _ := seedGraph(t)
	var buf1, buf2 bytes.Buffer
	require.NoError(t, JSON(context.Background(), b, 0, Filter{}, &buf1))
	require.NoError(t, JSON(context.Background(), b, 0, Filter{}, &buf2))
	assert.Equal(t, buf1.String(), buf2.String())
	assert.Contains(t, buf1.String(), "helper")
}

func TestCSV_HasNodeAndEdgeSections(t *testing.T) {
	b, _, _ := seedGraph(t)
	var buf bytes.Buffer
	require.NoError(t, CSV(context.Background(), b, 0, Filter{}, &buf))
	out := buf.String()
	assert.Contains(t, out, "section,nodes")
	assert.Contains(t, out, "section,edges")
}

func TestDOT_RendersClusterAndEdge(t *testing.T) {
	b, _, _ := seedGraph(t)
	var buf bytes.Buffer
	require.NoError(t, DOT(context.Background(), b, 0, Filter{}, &buf))
	out := buf.String()
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "helper")
}

func TestSCIP_EmitsSymbolScheme(t *testing.T) {
	b, _, _ := seedGraph(t)
	var buf bytes.Buffer
	require.NoError(t, SCIP(context.Background(), b, 0, Filter{}, &buf))
	assert.Contains(t, buf.String(), scipScheme)
}
