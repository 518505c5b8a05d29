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

package execlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage/nativestore"
)

func TestRecorder_StartFinishGet(t *testing.T) {
	ctx := context.Background()
	b, err := nativestore.Open(ctx, filepath.Join(t.TempDir(), "graph.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	r := New(b)
	rec, err := r.Start(ctx, "exec-1", "0.1.0", `{"cmd":"scan"}`, "/repo", "/repo/.magellan/graph.db")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeRunning, rec.Outcome)

	rec.FilesIndexed = 3
	rec.SymbolsIndexed = 10
	require.NoError(t, r.Finish(ctx, rec, model.OutcomeSuccess, ""))

	got, found, err := r.Get(ctx, 0, "exec-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.OutcomeSuccess, got.Outcome)
	assert.Equal(t, 3, got.FilesIndexed)
	assert.Equal(t, 10, got.SymbolsIndexed)
	assert.True(t, got.DurationMS >= 0)
}

func TestRecorder_Recent_SortedNewestFirst(t *testing.T) {
	ctx := context.Background()
	b, err := nativestore.Open(ctx, filepath.Join(t.TempDir(), "graph.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	r := New(b)
	first, err := r.Start(ctx, "exec-a", "0.1.0", "{}", "/repo", "/repo/.magellan/graph.db")
	require.NoError(t, err)
	require.NoError(t, r.Finish(ctx, first, model.OutcomeSuccess, ""))

	second, err := r.Start(ctx, "exec-b", "0.1.0", "{}", "/repo", "/repo/.magellan/graph.db")
	require.NoError(t, err)
	second.StartedAt = first.StartedAt.Add(1)
	require.NoError(t, r.Finish(ctx, second, model.OutcomeSuccess, ""))

	recs, err := r.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "exec-b", recs[0].ExecutionID)
	assert.Equal(t, "exec-a", recs[1].ExecutionID)
}

func TestRecorder_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	b, err := nativestore.Open(ctx, filepath.Join(t.TempDir(), "graph.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	r := New(b)
	_, found, err := r.Get(ctx, 0, "does-not-exist")
	require.NoError(t, err)
	assert.False(t, found)
}
