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

package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/parserpool"
	"github.com/kraklabs/magellan/internal/storage"
	"github.com/kraklabs/magellan/internal/storage/nativestore"
)

func TestEngine_Reconcile_InsertsSymbolsAndSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte(`package main

func helper() int {
	return 1
}

func caller() int {
	return helper()
}
`), 0o644))

	backend, err := nativestore.Open(ctx, filepath.Join(t.TempDir(), "graph.log"))
	require.NoError(t, err)
	defer backend.Close()

	engine := New(backend, parserpool.New(), nil)

	out, err := engine.Reconcile(ctx, root, "main.go")
	require.NoError(t, err)
	assert.False(t, out.Skipped)
	assert.Equal(t, 2, out.SymbolCount)

	out2, err := engine.Reconcile(ctx, root, "main.go")
	require.NoError(t, err)
	assert.True(t, out2.Skipped)

	ids, err := backend.EntityIDs(ctx, 0, model.KindSymbol)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestEngine_Reconcile_ResolvesDirectCallsEdgeBetweenSymbols(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte(`package main

func helper() int {
	return 1
}

func caller() int {
	return helper()
}
`), 0o644))

	backend, err := nativestore.Open(ctx, filepath.Join(t.TempDir(), "graph.log"))
	require.NoError(t, err)
	defer backend.Close()

	engine := New(backend, parserpool.New(), nil)
	_, err = engine.Reconcile(ctx, root, "main.go")
	require.NoError(t, err)

	ids, err := backend.EntityIDs(ctx, 0, model.KindSymbol)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	var callerID, helperID int64
	for _, id := range ids {
		n, err := backend.GetNode(ctx, 0, id)
		require.NoError(t, err)
		switch n.Name {
		case "caller":
			callerID = id
		case "helper":
			helperID = id
		}
	}
	require.NotZero(t, callerID)
	require.NotZero(t, helperID)

	callees, err := backend.Neighbors(ctx, 0, callerID, storage.NeighborQuery{Direction: storage.Outgoing, EdgeType: model.EdgeCalls})
	require.NoError(t, err)
	assert.Contains(t, callees, helperID)
}
