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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage"
	"github.com/kraklabs/magellan/internal/storage/nativestore"
)

func newTestBackend(t *testing.T) storage.Backend {
	t.Helper()
	b, err := nativestore.Open(context.Background(), filepath.Join(t.TempDir(), "graph.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func addSymbol(t *testing.T, b storage.Backend, name string) int64 {
	t.Helper()
	id, err := b.InsertNode(context.Background(), model.KindSymbol, name, "a.go", &model.SymbolPayload{Name: name})
	require.NoError(t, err)
	return id
}

func addCallsEdge(t *testing.T, b storage.Backend, from, to int64) {
	t.Helper()
	_, err := b.InsertEdge(context.Background(), from, to, model.EdgeCalls, nil)
	require.NoError(t, err)
}

// a -> b -> c, a -> c (diamond)
func TestEngine_Reachable(t *testing.T) {
	b := newTestBackend(t)
	a, bb, c := addSymbol(t, b, "a"), addSymbol(t, b, "b"), addSymbol(t, b, "c")
	addCallsEdge(t, b, a, bb)
	addCallsEdge(t, b, bb, c)
	addCallsEdge(t, b, a, c)

	e := New(b)
	reached, err := e.Reachable(context.Background(), 0, a, Forward)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{a, bb, c}, reached)
}

func TestEngine_Cycles_DetectsSCC(t *testing.T) {
	b := newTestBackend(t)
	a, bb, c := addSymbol(t, b, "a"), addSymbol(t, b, "b"), addSymbol(t, b, "c")
	addCallsEdge(t, b, a, bb)
	addCallsEdge(t, b, bb, c)
	addCallsEdge(t, b, c, a) // cycle a->b->c->a

	e := New(b)
	cycles, err := e.Cycles(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []int64{a, bb, c}, cycles[0])
}

func TestEngine_DeadCode(t *testing.T) {
	b := newTestBackend(t)
	root := addSymbol(t, b, "main")
	used := addSymbol(t, b, "used")
	unused := addSymbol(t, b, "unused")
	addCallsEdge(t, b, root, used)

	e := New(b)
	dead, err := e.DeadCode(context.Background(), 0, []int64{root})
	require.NoError(t, err)
	assert.Equal(t, []int64{unused}, dead)
}

func TestEngine_Paths_BoundedHit(t *testing.T) {
	b := newTestBackend(t)
	a, bb, c := addSymbol(t, b, "a"), addSymbol(t, b, "b"), addSymbol(t, b, "c")
	addCallsEdge(t, b, a, bb)
	addCallsEdge(t, b, bb, c)

	e := New(b)
	res, err := e.Paths(context.Background(), 0, a, c, PathOptions{MaxDepth: 1, MaxPaths: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Paths)
	assert.True(t, res.BoundedHit)

	res2, err := e.Paths(context.Background(), 0, a, c, PathOptions{MaxDepth: 5, MaxPaths: 10})
	require.NoError(t, err)
	require.Len(t, res2.Paths, 1)
	assert.Equal(t, []int64{a, bb, c}, res2.Paths[0])
}

func TestEngine_IsStale_EmptyDBNeverStale(t *testing.T) {
	b := newTestBackend(t)
	e := New(b)
	stale, err := e.IsStale(context.Background(), 0, time.Now())
	require.NoError(t, err)
	assert.False(t, stale)
}
